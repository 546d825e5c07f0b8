package executor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/config"
)

// Outcome is the captured result of running a child process.
type Outcome struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Cancelled bool
}

// Runner executes an already-approved command and reports its outcome.
// Implementations must never return an error: every failure class is
// encoded in the Outcome so callers branch on values, not fault types.
type Runner interface {
	Run(ctx context.Context, command string) Outcome
}

// ShellRunner runs commands through the host's command interpreter, giving
// them full shell semantics: globbing, variable expansion and pipelines.
type ShellRunner struct {
	shell   string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewShellRunner creates a runner from the gateway configuration. A zero
// timeout means no execution limit, matching the original behavior of the
// gateway. The shell override exists mainly so tests can force spawn
// failures with a path that does not resolve.
func NewShellRunner(cfg config.GatewayConfig, logger *logrus.Logger) *ShellRunner {
	shell := cfg.Shell
	if shell == "" {
		if runtime.GOOS == "windows" {
			shell = "cmd"
		} else {
			shell = "sh"
		}
	}

	return &ShellRunner{
		shell:   shell,
		timeout: cfg.Timeout.Std(),
		logger:  logger,
	}
}

// Run spawns the command, drains stdout and stderr concurrently with the
// process, waits for termination and reports the exit status. If ctx is
// cancelled while the child is still running, its process group is killed
// and the outcome is marked cancelled. A single attempt is made: spawn
// failures are reported with exit code -1 and a diagnostic on stderr,
// never retried.
func (r *ShellRunner) Run(ctx context.Context, command string) Outcome {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command(r.shell, "/C", command)
	} else {
		cmd = exec.Command(r.shell, "-c", command)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailure(err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailure(err)
	}

	// The child gets its own process group so that a cancellation reaches
	// every process the shell spawned, pipeline stages included. Killing
	// just the shell leaves grandchildren holding the pipes open, and the
	// drains would then block until the whole pipeline exits on its own.
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		r.logger.WithField("command", command).Warnf("Failed to spawn shell: %v", err)
		return spawnFailure(err)
	}

	// Both pipes are drained concurrently with the running process. Waiting
	// for the process before draining can deadlock once a kernel pipe
	// buffer fills up.
	var stdout, stderr []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout, _ = io.ReadAll(stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		stderr, _ = io.ReadAll(stderrPipe)
	}()

	// Watch for cancellation while the process runs. Killing the process
	// group also closes both pipes, which unblocks the drain goroutines.
	// The outcome is marked cancelled only when the kill actually reached a
	// live process tree: if the context fires after the child has already
	// been reaped, the terminate call fails and the completed outcome is
	// reported instead of a spurious cancellation.
	done := make(chan struct{})
	cancelled := false
	var watchWg sync.WaitGroup
	watchWg.Add(1)
	go func() {
		defer watchWg.Done()
		select {
		case <-ctx.Done():
			select {
			case <-done:
				return
			default:
			}
			if cmd.Process != nil && terminate(cmd) == nil {
				cancelled = true
			}
		case <-done:
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	close(done)
	watchWg.Wait()

	if cancelled {
		return Outcome{Cancelled: true, ExitCode: -1}
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			// A signal death reports -1 from ExitCode; keep it, it is
			// still a well-defined non-zero status.
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return Outcome{
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		ExitCode: exitCode,
	}
}

func spawnFailure(err error) Outcome {
	return Outcome{
		Stderr:   fmt.Sprintf("Error executing command: %v", err),
		ExitCode: -1,
	}
}
