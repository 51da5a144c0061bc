package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaystack(t *testing.T) {
	dir := writeBenchDir(t)
	app, stdout, _ := newTestApp()

	require.NoError(t, app.Run([]string{"rexbench", "haystack", "-d", dir, "unit/smoke"}))
	require.Equal(t, "banana", stdout.String())
}

func TestHaystackRepeat(t *testing.T) {
	dir := writeBenchDir(t)
	app, stdout, _ := newTestApp()

	require.NoError(t, app.Run([]string{
		"rexbench", "haystack", "-d", dir, "-r", "3", "unit/smoke",
	}))
	require.Equal(t, "bananabananabanana", stdout.String())
}

func TestHaystackArgs(t *testing.T) {
	dir := writeBenchDir(t)
	app, _, _ := newTestApp()

	err := app.Run([]string{"rexbench", "haystack", "-d", dir})
	require.EqualError(t, err, "expected exactly one benchmark name")
}
