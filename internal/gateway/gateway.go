package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/bus"
	"github.com/termgate/termgate/internal/executor"
	"github.com/termgate/termgate/internal/policy"
)

const (
	blockedMessage   = "Command blocked for security reasons"
	cancelledMessage = "Command execution cancelled"
	internalMessage  = "Internal error during command execution"
)

// Request is a single command submitted for execution.
type Request struct {
	Command string `json:"command"`
}

// Result is the terminal, externally visible value of a request. Exactly one
// of "blocked with no process spawned" or "not blocked with exactly one
// process spawned and waited on" holds for every request.
type Result struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
	Blocked    bool   `json:"blocked"`
}

// Gateway mediates between raw command text and process execution. It holds
// no per-request state and is safe for concurrent use.
type Gateway struct {
	policy   *policy.SafetyPolicy
	runner   executor.Runner
	eventBus *bus.EventBus
	logger   *logrus.Logger
}

// New creates a gateway. The event bus may be nil, in which case no events
// are emitted.
func New(safetyPolicy *policy.SafetyPolicy, runner executor.Runner, eventBus *bus.EventBus, logger *logrus.Logger) *Gateway {
	return &Gateway{
		policy:   safetyPolicy,
		runner:   runner,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle evaluates the command against the safety policy, runs it if
// allowed, and assembles the uniform result. No fault ever crosses this
// boundary: policy denials, spawn failures, runtime failures, cancellations
// and internal panics all come back as Result values.
func (g *Gateway) Handle(ctx context.Context, req Request) (result Result) {
	requestID := uuid.NewString()
	log := g.logger.WithField("requestId", requestID)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while handling command: %v", r)
			g.publish(bus.EventCommandFailed, requestID, map[string]interface{}{
				"panic": true,
			})
			result = Result{
				Stderr:     internalMessage,
				ReturnCode: -1,
			}
		}
	}()

	log.Infof("Handling command: %s", req.Command)
	g.publish(bus.EventCommandReceived, requestID, map[string]interface{}{
		"command": req.Command,
	})

	verdict := g.policy.Evaluate(req.Command)
	if !verdict.Allowed {
		log.Warnf("Command blocked: %s", verdict.Reason)
		g.publish(bus.EventCommandBlocked, requestID, map[string]interface{}{
			"command": req.Command,
			"reason":  verdict.Reason,
		})
		return assemble(verdict, nil)
	}

	g.publish(bus.EventCommandStarted, requestID, nil)
	outcome := g.runner.Run(ctx, req.Command)

	if outcome.Cancelled {
		log.Warn("Command execution cancelled")
		g.publish(bus.EventCommandCancelled, requestID, nil)
	} else {
		log.WithField("returnCode", outcome.ExitCode).Info("Command completed")
		g.publish(bus.EventCommandCompleted, requestID, map[string]interface{}{
			"returnCode": outcome.ExitCode,
		})
	}

	return assemble(verdict, &outcome)
}

// assemble maps a verdict and an optional outcome to the uniform result.
// A denial never consults the outcome. A cancellation discards any partial
// output rather than returning a truncated buffer.
func assemble(verdict policy.Verdict, outcome *executor.Outcome) Result {
	if !verdict.Allowed {
		return Result{
			Stderr:     blockedMessage,
			ReturnCode: 1,
			Blocked:    true,
		}
	}

	if outcome.Cancelled {
		return Result{
			Stderr:     cancelledMessage,
			ReturnCode: -1,
		}
	}

	return Result{
		Stdout:     outcome.Stdout,
		Stderr:     outcome.Stderr,
		ReturnCode: outcome.ExitCode,
	}
}

func (g *Gateway) publish(eventType bus.EventType, requestID string, payload map[string]interface{}) {
	if g.eventBus == nil {
		return
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["requestId"] = requestID
	g.eventBus.PublishAsync(eventType, payload)
}
