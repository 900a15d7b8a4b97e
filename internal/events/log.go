package events

import (
	"log"

	"github.com/hostwatchhq/agent/pkg/types"
)

// LogRecorder mirrors events into the agent log.
type LogRecorder struct {
	logger *log.Logger
}

func NewLogRecorder(logger *log.Logger) LogRecorder {
	return LogRecorder{logger: logger}
}

func (r LogRecorder) Record(event types.Event) {
	if r.logger == nil {
		return
	}
	if event.Target != "" {
		r.logger.Printf("event %s target=%s", event.Type, event.Target)
		return
	}
	r.logger.Printf("event %s", event.Type)
}
