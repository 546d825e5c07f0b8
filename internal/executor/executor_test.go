package executor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termgate/termgate/internal/config"
)

func newTestRunner(cfg config.GatewayConfig) *ShellRunner {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewShellRunner(cfg, logger)
}

func TestRunCapturesStdout(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	outcome := runner.Run(context.Background(), "echo hello")

	assert.Equal(t, "hello\n", outcome.Stdout)
	assert.Equal(t, "", outcome.Stderr)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.False(t, outcome.Cancelled)
}

func TestRunCapturesStderr(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	outcome := runner.Run(context.Background(), "echo oops 1>&2")

	assert.Equal(t, "", outcome.Stdout)
	assert.Equal(t, "oops\n", outcome.Stderr)
	assert.Equal(t, 0, outcome.ExitCode)
}

func TestRunReportsExitCode(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	outcome := runner.Run(context.Background(), "exit 7")

	assert.Equal(t, 7, outcome.ExitCode)
	assert.False(t, outcome.Cancelled)
}

func TestRunNonexistentProgram(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	outcome := runner.Run(context.Background(), "thiscommanddoesnotexist123")

	assert.False(t, outcome.Cancelled)
	assert.NotEqual(t, 0, outcome.ExitCode)
	assert.NotEmpty(t, outcome.Stderr)
}

func TestRunSpawnFailure(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{Shell: "/nonexistent/shell/binary"})

	outcome := runner.Run(context.Background(), "echo hello")

	assert.Equal(t, -1, outcome.ExitCode)
	assert.Empty(t, outcome.Stdout)
	assert.Contains(t, outcome.Stderr, "Error executing command:")
	assert.False(t, outcome.Cancelled)
}

func TestRunCancellationKillsChild(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome := runner.Run(ctx, "sleep 30")
	elapsed := time.Since(start)

	assert.True(t, outcome.Cancelled)
	assert.Equal(t, -1, outcome.ExitCode)
	// Run returning means Wait returned: the child was reaped, not leaked.
	assert.Less(t, elapsed, 5*time.Second, "cancellation must not wait for the command")
}

func TestRunCancellationKillsPipelineChildren(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	// Killing only the shell would leave sleep and cat holding the pipes
	// open, and Run would block for the full five seconds.
	outcome := runner.Run(ctx, "sleep 5 | cat")
	elapsed := time.Since(start)

	assert.True(t, outcome.Cancelled)
	assert.Equal(t, -1, outcome.ExitCode)
	assert.Less(t, elapsed, 2*time.Second, "cancellation must terminate the whole pipeline")
}

func TestRunLateCancellationKeepsCompletedOutcome(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	// Race quick commands against cancellations landing around completion
	// time. Whenever the kill misses the already-exited tree, the completed
	// outcome must survive intact rather than being discarded as cancelled.
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func(delay time.Duration) {
			time.Sleep(delay)
			cancel()
		}(time.Duration(i) * time.Millisecond)

		outcome := runner.Run(ctx, "echo settled")
		cancel()

		if outcome.Cancelled {
			assert.Equal(t, -1, outcome.ExitCode)
			assert.Equal(t, "", outcome.Stdout)
		} else {
			assert.Equal(t, 0, outcome.ExitCode)
			assert.Equal(t, "settled\n", outcome.Stdout)
		}
	}
}

func TestRunTimeout(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{Timeout: config.Duration(100 * time.Millisecond)})

	start := time.Now()
	outcome := runner.Run(context.Background(), "sleep 30")
	elapsed := time.Since(start)

	assert.True(t, outcome.Cancelled)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestRunDrainsLargeOutput(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	// Enough output to overflow a kernel pipe buffer; a sequential
	// wait-then-read implementation deadlocks here.
	outcome := runner.Run(context.Background(), "seq 1 100000")

	require.Equal(t, 0, outcome.ExitCode)
	assert.True(t, strings.HasPrefix(outcome.Stdout, "1\n2\n"))
	assert.True(t, strings.HasSuffix(outcome.Stdout, "100000\n"))
}

func TestRunConcurrentNoCrossTalk(t *testing.T) {
	runner := newTestRunner(config.GatewayConfig{})

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	commands := []string{"echo first", "echo second 1>&2"}

	for i := range commands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = runner.Run(context.Background(), commands[i])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "first\n", outcomes[0].Stdout)
	assert.Equal(t, "", outcomes[0].Stderr)
	assert.Equal(t, "second\n", outcomes[1].Stderr)
	assert.Equal(t, "", outcomes[1].Stdout)
}
