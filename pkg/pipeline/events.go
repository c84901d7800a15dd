package pipeline

// EventType classifies a progress event in the agent trace.
type EventType string

const (
	EventThought     EventType = "thought"
	EventAction      EventType = "action"
	EventObservation EventType = "observation"
	EventError       EventType = "error"
)

// Event is one entry in the live progress trace of a generation run.
// Terminal marks the final event of a run, after it no more events follow.
type Event struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
	Topic    string    `json:"topic,omitempty"`
	Terminal bool      `json:"terminal,omitempty"`
}

// EventSink receives progress events as the run advances. Sinks must not
// block, slow consumers should buffer on their side.
type EventSink func(Event)

func (s EventSink) emit(event Event) {
	if s != nil {
		s(event)
	}
}
