// Package runner executes the configured suites as child processes and
// assembles the per-invocation run record. Suites run sequentially by
// default; an optional bounded pool runs whole suites concurrently. Results
// are always delivered in configuration order regardless of completion
// order.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/apexlabs/regressor/core/suite"
)

const (
	defaultMaxCaptureBytes = 1 << 20
	truncationMarker       = "\n[TRUNCATED] output capture limit reached"
	killWaitDelay          = 5 * time.Second
)

// Execution is the raw outcome of one suite's child process, before any
// output parsing.
type Execution struct {
	Spec suite.Spec
	// ExitCode is nil when the process could not be spawned at all.
	ExitCode   *int
	TimedOut   bool
	SpawnError string
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

// Options tunes suite execution.
type Options struct {
	// Parallel caps concurrently running suites; values <= 1 mean
	// sequential execution.
	Parallel int
	// MaxCaptureBytes bounds each captured stream; zero means the default.
	MaxCaptureBytes int
	// StdoutSink and StderrSink receive the children's output in real time
	// in addition to capture. Nil disables streaming.
	StdoutSink io.Writer
	StderrSink io.Writer
	Logger     *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// ExecuteAll runs every configured suite. A suite that cannot be spawned or
// exceeds its timeout is contained as a failed Execution; remaining suites
// always still run.
func ExecuteAll(ctx context.Context, specs []suite.Spec, opts Options) []Execution {
	results := make([]Execution, len(specs))
	if opts.Parallel <= 1 {
		for index, spec := range specs {
			results[index] = executeOne(ctx, spec, opts)
		}
		return results
	}

	semaphore := make(chan struct{}, opts.Parallel)
	var group sync.WaitGroup
	for index, spec := range specs {
		group.Add(1)
		go func(index int, spec suite.Spec) {
			defer group.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			results[index] = executeOne(ctx, spec, opts)
		}(index, spec)
	}
	group.Wait()
	return results
}

func executeOne(ctx context.Context, spec suite.Spec, opts Options) Execution {
	logger := opts.logger()
	timeout := time.Duration(spec.TimeoutMs) * time.Millisecond

	suiteCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		suiteCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limit := opts.MaxCaptureBytes
	if limit <= 0 {
		limit = defaultMaxCaptureBytes
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutCapture := &limitedWriter{w: &stdoutBuf, limit: limit}
	stderrCapture := &limitedWriter{w: &stderrBuf, limit: limit}

	// #nosec G204 -- suite commands come from the operator's own configuration.
	command := exec.CommandContext(suiteCtx, spec.Command, spec.Args...)
	command.Stdout = teeWriter(stdoutCapture, opts.StdoutSink)
	command.Stderr = teeWriter(stderrCapture, opts.StderrSink)
	command.WaitDelay = killWaitDelay

	logger.Info("suite starting",
		zap.String("suite", spec.Name),
		zap.String("command", spec.Command),
		zap.Duration("timeout", timeout),
	)

	started := time.Now()
	runErr := command.Run()
	elapsed := time.Since(started)

	execution := Execution{
		Spec:     spec,
		Stdout:   capturedText(stdoutCapture, &stdoutBuf),
		Stderr:   capturedText(stderrCapture, &stderrBuf),
		Duration: elapsed,
	}

	if suiteCtx.Err() == context.DeadlineExceeded {
		execution.TimedOut = true
		execution.ExitCode = exitCodeOf(runErr)
		execution.Stderr += fmt.Sprintf("\n[TIMEOUT] suite killed after %s", timeout)
		logger.Warn("suite timed out",
			zap.String("suite", spec.Name),
			zap.Duration("timeout", timeout),
		)
		return execution
	}

	if runErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			code := exitErr.ExitCode()
			execution.ExitCode = &code
			logger.Info("suite finished",
				zap.String("suite", spec.Name),
				zap.Int("exit_code", code),
				zap.Duration("duration", elapsed),
			)
			return execution
		}
		// The process never started: missing binary, permission failure.
		execution.SpawnError = runErr.Error()
		execution.Stderr += fmt.Sprintf("\n[LAUNCH] cannot start suite: %v", runErr)
		logger.Warn("suite failed to launch",
			zap.String("suite", spec.Name),
			zap.String("command", spec.Command),
			zap.Error(runErr),
		)
		return execution
	}

	zero := 0
	execution.ExitCode = &zero
	logger.Info("suite finished",
		zap.String("suite", spec.Name),
		zap.Int("exit_code", 0),
		zap.Duration("duration", elapsed),
	)
	return execution
}

func exitCodeOf(runErr error) *int {
	exitErr := &exec.ExitError{}
	if errors.As(runErr, &exitErr) {
		code := exitErr.ExitCode()
		return &code
	}
	code := -1
	return &code
}

func teeWriter(capture io.Writer, sink io.Writer) io.Writer {
	if sink == nil {
		return capture
	}
	return io.MultiWriter(capture, sink)
}

func capturedText(capture *limitedWriter, buf *bytes.Buffer) string {
	if capture.truncated {
		return buf.String() + truncationMarker
	}
	return buf.String()
}

// limitedWriter caps captured bytes so a runaway suite cannot exhaust
// memory; overflow is discarded but still reported as written so the child
// never sees a write error.
type limitedWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.written >= lw.limit {
		lw.truncated = true
		return len(p), nil
	}
	chunk := p
	if remaining := lw.limit - lw.written; len(chunk) > remaining {
		chunk = chunk[:remaining]
		lw.truncated = true
	}
	n, err := lw.w.Write(chunk)
	lw.written += n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
