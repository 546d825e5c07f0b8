package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/bus"
)

// EventBusLogHook forwards log entries to the EventBus so that streaming
// clients see the same diagnostics the process logs locally.
type EventBusLogHook struct {
	eventBus   *bus.EventBus
	serverName string
}

// NewEventBusLogHook creates a new event bus log hook
func NewEventBusLogHook(eventBus *bus.EventBus, serverName string) *EventBusLogHook {
	return &EventBusLogHook{
		eventBus:   eventBus,
		serverName: serverName,
	}
}

// Levels returns the log levels this hook is interested in
func (h *EventBusLogHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
		logrus.DebugLevel,
	}
}

// Fire is called when a log event occurs
func (h *EventBusLogHook) Fire(entry *logrus.Entry) error {
	if h.eventBus == nil {
		return nil
	}

	// Only gateway-tagged entries are forwarded. This also keeps the bus's
	// own bookkeeping logs from re-entering the hook.
	requestID, ok := entry.Data["requestId"].(string)
	if !ok || requestID == "" {
		return nil
	}

	message := entry.Message

	var fieldParts []string
	for key, value := range entry.Data {
		if key != "requestId" {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", key, value))
		}
	}
	if len(fieldParts) > 0 {
		message = fmt.Sprintf("%s [%s]", message, strings.Join(fieldParts, ", "))
	}

	h.eventBus.PublishAsync(bus.EventServerLog, map[string]interface{}{
		"requestId": requestID,
		"level":     entry.Level.String(),
		"message":   message,
		"source":    h.serverName,
		"timestamp": entry.Time.Format(time.RFC3339),
	})

	return nil
}
