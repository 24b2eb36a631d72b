package api

// EventType is the value of the SSE "event:" field. Data frames carry no
// event field and use the empty EventType.
type EventType string

const (
	// EventData marks a plain "data:" frame.
	EventData EventType = ""

	// EventDone is the terminal success event of the consultation stream.
	EventDone EventType = "done"

	// EventEnd is the terminal success event of the idea stream.
	EventEnd EventType = "end"

	// EventError is the terminal in-band failure event.
	EventError EventType = "error"
)

// DoneData is the payload sent with EventDone.
const DoneData = "[DONE]"

// Event is a single SSE frame.
type Event struct {
	Type EventType
	Data string
}

// IsTerminal reports whether no frame may follow this one.
func (e Event) IsTerminal() bool {
	return e.Type != EventData
}

// Terminal describes the success event a stream ends with.
type Terminal struct {
	Type EventType
	Data string
}

// DefaultTerminal is the success frame "event: done\ndata: [DONE]".
var DefaultTerminal = Terminal{Type: EventDone, Data: DoneData}
