package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFilter(t *testing.T) {
	f, err := newFilter([]string{"^a", "!^ab"}, []string{"^ac"})
	require.NoError(t, err)
	require.True(t, f.Include("ax"))
	require.False(t, f.Include("abx"))
	require.False(t, f.Include("acx"))
	require.False(t, f.Include("other"))

	_, err = newFilter([]string{"("}, nil)
	require.ErrorContains(t, err, "failed to compile filter pattern")
	_, err = newFilter(nil, []string{"("})
	require.ErrorContains(t, err, "failed to compile filter pattern")
}
