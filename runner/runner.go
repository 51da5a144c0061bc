// Package runner executes benchmark runner processes and collects their
// timing samples.
//
// An execution pairs one benchmark definition with one regex engine. The
// engine's runner program receives the benchmark description in KLV format
// on stdin and reports one "nanoseconds,count" line per timed iteration on
// stdout. The supervisor here feeds stdin, drains stdout and stderr and
// polls for completion concurrently, so a runner that stalls on any of its
// pipes can still be killed when the timeout trips.
package runner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/perfgo/rexbench/benchdef"
	"github.com/perfgo/rexbench/klv"
	"github.com/perfgo/rexbench/model"
)

// MinTimeout is the smallest process timeout ever used, no matter how short
// the configured benchmark time budgets are.
const MinTimeout = 10 * time.Second

// pollInterval is how often the supervisor checks whether the runner
// process has exited.
const pollInterval = 50 * time.Millisecond

// Config holds the iteration and time budgets sent to runner processes,
// plus the hard timeout after which a runner is killed.
type Config struct {
	MaxIters       uint64
	MaxWarmupIters uint64
	MaxTime        time.Duration
	MaxWarmupTime  time.Duration
	Timeout        time.Duration
}

// DefaultConfig returns the standard budgets: a million iterations capped at
// 3 seconds of measurement with half that for warmup. The timeout leaves
// room for both budgets to be exhausted and is never below MinTimeout.
func DefaultConfig() Config {
	maxTime := 3 * time.Second
	maxWarmupTime := maxTime / 2
	return Config{
		MaxIters:       1_000_000,
		MaxWarmupIters: 1_000_000,
		MaxTime:        maxTime,
		MaxWarmupTime:  maxWarmupTime,
		Timeout:        DefaultTimeout(maxTime, maxWarmupTime),
	}
}

// DefaultTimeout returns the timeout used when none is configured
// explicitly: twice the total time budget, so a well-behaved runner has
// ample room to exhaust both budgets. The MinTimeout floor keeps very small
// budgets from killing runners during startup.
func DefaultTimeout(maxTime, maxWarmupTime time.Duration) time.Duration {
	timeout := 2 * (maxTime + maxWarmupTime)
	if timeout < MinTimeout {
		timeout = MinTimeout
	}
	return timeout
}

// Execution is a single benchmark ready to run: one definition paired with
// one of its engines.
type Execution struct {
	Config Config
	Def    benchdef.Definition
	Engine benchdef.Engine
}

// Results are the raw samples collected from one execution.
type Results struct {
	// Wall time from spawning the runner process to reaping it.
	Total time.Duration
	// One sample per timed iteration, warmup excluded.
	Samples []time.Duration
}

// Verifier returns a copy of this execution configured to run exactly one
// iteration with no warmup, which is all that checking the reported count
// requires. The timeout carries over unchanged.
func (e *Execution) Verifier() Execution {
	v := *e
	v.Config = Config{MaxIters: 1, Timeout: e.Config.Timeout}
	return v
}

// Aggregate converts the outcome of Collect into a measurement. Errors are
// folded into the measurement itself rather than reported out of band, so
// one broken engine never aborts a whole benchmark run.
func (e *Execution) Aggregate(results Results, err error) model.Measurement {
	if err != nil {
		return e.measurementError(err.Error())
	}
	return e.toMeasurement(results)
}

func (e *Execution) measurementError(msg string) model.Measurement {
	return model.Measurement{
		Name:          e.Def.Name.Full,
		Model:         e.Def.Model,
		Engine:        e.Engine.Name,
		EngineVersion: e.Engine.Version,
		Err:           msg,
	}
}

func (e *Execution) toMeasurement(results Results) model.Measurement {
	times, err := model.NewAggregateTimes(results.Samples)
	if err != nil {
		return e.measurementError(err.Error())
	}
	var haystackLen uint64
	switch e.Def.Model {
	case "compile", "regex-redux":
		// Iteration time doesn't scale with the haystack for these models,
		// so a throughput would be meaningless.
	default:
		haystackLen = uint64(len(e.Def.Haystack))
	}
	return model.Measurement{
		Name:          e.Def.Name.Full,
		Model:         e.Def.Model,
		Engine:        e.Engine.Name,
		EngineVersion: e.Engine.Version,
		Iters:         uint64(len(results.Samples)),
		Total:         results.Total,
		Aggregate:     model.NewAggregate(times, haystackLen),
	}
}

// Collect runs the benchmark and gathers its samples. In verbose mode the
// runner's stderr passes straight through to this process's stderr;
// otherwise it is captured and folded into error messages.
func (e *Execution) Collect(logger zerolog.Logger, verbose bool) (Results, error) {
	// Refuse to measure an engine with an unresolved version. A result
	// without the version measured is a disservice to anyone reading it.
	if e.Engine.IsMissingVersion() {
		return Results{}, errors.New("invalid version for regex engine")
	}

	cmd := e.Engine.Run.Cmd()
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return Results{}, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return Results{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	var stderrR, stderrW *os.File
	if verbose {
		cmd.Stderr = os.Stderr
	} else {
		stderrR, stderrW, err = os.Pipe()
		if err != nil {
			stdinR.Close()
			stdinW.Close()
			stdoutR.Close()
			stdoutW.Close()
			return Results{}, fmt.Errorf("failed to create stderr pipe: %w", err)
		}
		cmd.Stderr = stderrW
	}
	closeAll := func(files ...*os.File) {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}

	logger.Debug().
		Str("benchmark", e.Def.Name.Full).
		Str("engine", e.Engine.Name).
		Str("command", e.Engine.Run.QuotedString()).
		Uint64("max-iters", e.Config.MaxIters).
		Uint64("max-warmup-iters", e.Config.MaxWarmupIters).
		Dur("max-time", e.Config.MaxTime).
		Dur("max-warmup-time", e.Config.MaxWarmupTime).
		Msg("Running benchmark command")

	spawnStart := time.Now()
	if err := cmd.Start(); err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)
		return Results{}, fmt.Errorf("failed to spawn process: %w", err)
	}
	// The child holds its own copies of these ends now. Ours must go away
	// or the workers below would never see EOF and broken-pipe errors.
	closeAll(stdinR, stdoutW, stderrW)

	// Each worker owns one pipe end and captures its result in its own
	// variable. The group is joined unconditionally; errors are inspected
	// afterwards in a fixed order so the most useful one wins.
	var (
		g         errgroup.Group
		stdinErr  error
		stdout    []byte
		stdoutErr error
		stderr    []byte
		stderrErr error
	)
	klvBench := &klv.Benchmark{
		Name:            e.Def.Name.Full,
		Model:           e.Def.Model,
		Patterns:        e.Def.Regexes,
		CaseInsensitive: e.Def.CaseInsensitive,
		Unicode:         e.Def.Unicode,
		Haystack:        e.Def.Haystack,
		MaxIters:        e.Config.MaxIters,
		MaxWarmupIters:  e.Config.MaxWarmupIters,
		MaxTime:         e.Config.MaxTime,
		MaxWarmupTime:   e.Config.MaxWarmupTime,
	}
	g.Go(func() error {
		defer stdinW.Close()
		if err := klvBench.Write(stdinW); err != nil {
			stdinErr = fmt.Errorf("failed to write KLV data to stdin: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer stdoutR.Close()
		buf, err := io.ReadAll(stdoutR)
		if err != nil {
			stdoutErr = fmt.Errorf("failed to read stdout: %w", err)
			return nil
		}
		stdout = buf
		return nil
	})
	if !verbose {
		g.Go(func() error {
			defer stderrR.Close()
			buf, err := io.ReadAll(stderrR)
			if err != nil {
				stderrErr = fmt.Errorf("failed to read stderr: %w", err)
				return nil
			}
			stderr = buf
			return nil
		})
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	// Poll for completion so a runner that overstays its budget gets
	// killed instead of hanging the whole run.
	var waitErr error
	reaped := false
	for !reaped {
		select {
		case waitErr = <-waitCh:
			reaped = true
		case <-time.After(pollInterval):
			if time.Since(spawnStart) <= e.Config.Timeout {
				continue
			}
			logger.Debug().
				Dur("timeout", e.Config.Timeout).
				Msg("Benchmark time exceeded timeout, killing process")
			if err := cmd.Process.Kill(); err != nil {
				logger.Debug().Err(err).Msg("Failed to kill benchmark process")
			} else {
				logger.Debug().Msg("Successfully killed benchmark process, reaping")
				reapErr := <-waitCh
				logger.Debug().Err(reapErr).Msg("Reaped killed benchmark process")
			}
			_ = g.Wait()
			return Results{}, fmt.Errorf("timeout: exceeded %v", e.Config.Timeout)
		}
	}
	_ = g.Wait()

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return Results{}, fmt.Errorf("failed to reap process: %w", waitErr)
	}
	// stderr is likely to contain the actual cause of any failure, so its
	// own read error and the exit status take precedence over stdout and
	// stdin problems.
	if stderrErr != nil {
		return Results{}, stderrErr
	}
	if waitErr != nil {
		if verbose {
			return Results{}, fmt.Errorf(
				"failed to run command for '%s'", e.Engine.Name,
			)
		}
		last, ok := lastLine(stderr)
		if !ok {
			return Results{}, fmt.Errorf(
				"failed to run command for '%s' but stderr was empty", e.Engine.Name,
			)
		}
		return Results{}, fmt.Errorf(
			"failed to run command for '%s', last line of stderr is: %s",
			e.Engine.Name, last,
		)
	}
	if stdoutErr != nil {
		return Results{}, stdoutErr
	}
	if stdinErr != nil {
		return Results{}, stdinErr
	}

	expectedCount, err := e.Def.Count(e.Engine.Name)
	if err != nil {
		return Results{}, err
	}
	var results Results
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		durField, countField, ok := strings.Cut(line, ",")
		if !ok {
			return Results{}, fmt.Errorf(
				"when running '%s', got invalid sample format %q", e.Engine.Name, line,
			)
		}
		nanos, err := strconv.ParseUint(durField, 10, 64)
		if err != nil {
			return Results{}, fmt.Errorf(
				"failed to parse duration field %q as u64: %w", durField, err,
			)
		}
		// A sample of 0ns is meaningless, so round up to 1. Anything that
		// reliably takes less than a nanosecond is beyond measuring here.
		if nanos == 0 {
			nanos = 1
		}
		count, err := strconv.ParseUint(countField, 10, 64)
		if err != nil {
			return Results{}, fmt.Errorf(
				"failed to parse count field %q as u64: %w", countField, err,
			)
		}
		if count != expectedCount {
			return Results{}, fmt.Errorf(
				"count mismatch, expected %d, got %d", expectedCount, count,
			)
		}
		results.Samples = append(results.Samples, time.Duration(nanos))
	}
	if err := scanner.Err(); err != nil {
		return Results{}, fmt.Errorf("failed to read stdout: %w", err)
	}
	results.Total = time.Since(spawnStart)
	return results, nil
}

// lastLine returns the final line of out, with its terminator stripped.
// The second return is false only when out is completely empty.
func lastLine(out []byte) ([]byte, bool) {
	if len(out) == 0 {
		return nil, false
	}
	s := bytes.TrimSuffix(out, []byte("\n"))
	if i := bytes.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return bytes.TrimSuffix(s, []byte("\r")), true
}
