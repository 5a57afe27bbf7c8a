package provisioning

import (
	"log"
	"time"
)

// Observer receives structured progress events from the executor, prober
// and bootstrap coordinator.
type Observer interface {
	// Printf logs a free-form progress message.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)
}

// Event is one structured provisioning event.
type Event struct {
	Type      EventType
	Node      string
	Message   string
	Timestamp time.Time
}

// EventType classifies provisioning events.
type EventType string

const (
	// EventNodeCreating indicates node resources are being created.
	EventNodeCreating EventType = "node.creating"
	// EventNodeCreated indicates node resources exist.
	EventNodeCreated EventType = "node.created"
	// EventNodeBooting indicates a DHCP lease was observed.
	EventNodeBooting EventType = "node.booting"
	// EventNodeReady indicates SSH succeeded and cloud-init finished.
	EventNodeReady EventType = "node.ready"
	// EventNodeFailed indicates a node reached a failure state.
	EventNodeFailed EventType = "node.failed"
	// EventNodeDestroying indicates node resources are being removed.
	EventNodeDestroying EventType = "node.destroying"
	// EventNodeDestroyed indicates node resources are gone.
	EventNodeDestroyed EventType = "node.destroyed"
)

// ConsoleObserver logs events with the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver returns an Observer writing to the process log.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

func (o *ConsoleObserver) Event(event Event) {
	if event.Node != "" {
		log.Printf("[%s] %s %s", event.Node, event.Type, event.Message)
		return
	}
	log.Printf("%s %s", event.Type, event.Message)
}

// NopObserver discards everything, for tests.
type NopObserver struct{}

func (NopObserver) Printf(string, ...interface{}) {}

func (NopObserver) Event(Event) {}
