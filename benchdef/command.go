package benchdef

// This file contains the command configuration shared by engine runner,
// version, build and clean commands. A command knows how to turn itself into
// an exec.Cmd with the working directory and environment the benchmark
// directory prescribes.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
)

// Command describes a single program invocation from an engine
// configuration. The zero value is not runnable; commands are built by
// decoding engines.toml and validated before use.
type Command struct {
	// Cwd is the directory the command runs in. Engine validation fills
	// this in from the engine (and ultimately the benchmark directory)
	// when the TOML omits it.
	Cwd string `toml:"cwd"`
	// Bin is the program to run. When it contains a path separator it is
	// interpreted relative to Cwd, otherwise it is looked up in PATH.
	Bin string `toml:"bin"`
	// Args are passed to Bin verbatim.
	Args []string `toml:"args"`
	// Envs are appended to the inherited environment.
	Envs []CommandEnv `toml:"envs"`
}

// CommandEnv is a single environment variable pair attached to a command.
type CommandEnv struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// validate fills in the working directory for commands that don't set one
// explicitly. Every command ends up with the directory of its engine so that
// relative binary names resolve against the engine's tree.
func (c *Command) validate(parentCwd string) {
	if c.Cwd == "" {
		c.Cwd = parentCwd
	}
}

// BinPath resolves the program this command runs. A bare program name is
// returned as-is so that PATH lookup applies. A name containing a path
// separator is joined with the command's working directory, since exec
// resolves relative paths against the parent process and not the child's
// directory.
func (c *Command) BinPath() string {
	if c.Cwd == "" || !strings.ContainsRune(c.Bin, filepath.Separator) {
		return c.Bin
	}
	if filepath.IsAbs(c.Bin) {
		return c.Bin
	}
	if filepath.IsAbs(c.Cwd) {
		return filepath.Join(c.Cwd, c.Bin)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(c.Cwd, c.Bin)
	}
	return filepath.Join(cwd, c.Cwd, c.Bin)
}

// QuotedString renders the command as a copy-pasteable shell string.
func (c *Command) QuotedString() string {
	return shellescape.QuoteCommand(append([]string{c.BinPath()}, c.Args...))
}

// Cmd builds an exec.Cmd for this command. The child inherits the parent
// environment with the command's own variables appended.
func (c *Command) Cmd() *exec.Cmd {
	cmd := exec.Command(c.BinPath(), c.Args...)
	cmd.Dir = c.Cwd
	if len(c.Envs) > 0 {
		env := os.Environ()
		for _, e := range c.Envs {
			env = append(env, e.Name+"="+e.Value)
		}
		cmd.Env = env
	}
	return cmd
}

// Output runs the command and returns its stdout. When the command exits
// with a non-zero status, the last line of its stderr is pulled into the
// error to make failures legible without re-running anything.
func (c *Command) Output(logger zerolog.Logger) ([]byte, error) {
	cmd := c.Cmd()
	logger.Debug().Str("command", c.QuotedString()).Msg("Running command")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.Output()
	if err == nil {
		if stderr.Len() > 0 {
			logger.Debug().Str("stderr", stderr.String()).Msg("Command succeeded but stderr is not empty")
		}
		return stdout, nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return nil, fmt.Errorf("failed to run command and wait for output: %w", err)
	}
	logger.Debug().Str("status", exitErr.ProcessState.String()).Msg("Command failed")
	logger.Debug().Str("stderr", stderr.String()).Msg("Command stderr")
	last := lastLine(stderr.String())
	if last == "" {
		return nil, fmt.Errorf("command failed with %v but stderr is empty", exitErr.ProcessState)
	}
	return nil, fmt.Errorf("command failed, last line of stderr: %q", last)
}

// lastLine returns the last non-empty line of s, with trailing line
// terminators stripped.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimRight(s, "\r")
}
