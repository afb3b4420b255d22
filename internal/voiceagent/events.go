package voiceagent

// EventName identifies one of the events a voice agent emits.
type EventName string

const (
	EventCallStart   EventName = "call-start"
	EventCallEnd     EventName = "call-end"
	EventMessage     EventName = "message"
	EventSpeechStart EventName = "speech-start"
	EventSpeechEnd   EventName = "speech-end"
	EventError       EventName = "error"
)

// Events lists every event name a Client can emit.
var Events = []EventName{
	EventCallStart,
	EventCallEnd,
	EventMessage,
	EventSpeechStart,
	EventSpeechEnd,
	EventError,
}

const (
	MessageTypeTranscript = "transcript"

	TranscriptTypeFinal   = "final"
	TranscriptTypePartial = "partial"
)

// Message is the payload of a "message" event. Only transcript messages carry
// TranscriptType, Role and Transcript.
type Message struct {
	Type           string `json:"type"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

func (m *Message) IsFinalTranscript() bool {
	return m != nil && m.Type == MessageTypeTranscript && m.TranscriptType == TranscriptTypeFinal
}

// Event is what handlers receive. Message is set for EventMessage and Err for
// EventError.
type Event struct {
	Name    EventName
	Message *Message
	Err     error
}

type Handler func(Event)

// TransportError is the error carried by an EventError.
type TransportError struct {
	Description string
}

func (e *TransportError) Error() string {
	return "voice agent: " + e.Description
}
