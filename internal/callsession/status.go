package callsession

// Status is the call lifecycle state held by a Controller.
type Status string

const (
	StatusInactive   Status = "INACTIVE"
	StatusConnecting Status = "CONNECTING"
	StatusActive     Status = "ACTIVE"
	StatusFinished   Status = "FINISHED"
)

func (s Status) String() string {
	return string(s)
}

// InCall reports whether a call has been requested and not yet finished.
func (s Status) InCall() bool {
	return s == StatusConnecting || s == StatusActive
}

// Role is the speaker of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a transcript role from the voice agent to a Role. Unknown
// roles report false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleSystem, RoleAssistant:
		return r, true
	default:
		return "", false
	}
}

// TranscriptMessage is one finalized line of the call transcript.
type TranscriptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// View is a snapshot of the controller's UI-facing state.
type View struct {
	Status      Status              `json:"status"`
	Transcript  []TranscriptMessage `json:"transcript"`
	LastMessage string              `json:"lastMessage"`
	IsSpeaking  bool                `json:"isSpeaking"`
}
