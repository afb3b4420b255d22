package voiceagent

import "testing"

func TestEmitterOrderAndOff(t *testing.T) {
	var e Emitter
	var got []string

	first := e.On(EventCallStart, func(Event) { got = append(got, "first") })
	e.On(EventCallStart, func(Event) { got = append(got, "second") })
	e.On(EventCallEnd, func(Event) { got = append(got, "end") })

	e.Emit(Event{Name: EventCallStart})
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("handlers out of order: %v", got)
	}

	if !e.Off(first) {
		t.Fatal("Off returned false for a live subscription")
	}
	if e.Off(first) {
		t.Error("second Off of the same subscription returned true")
	}

	got = nil
	e.Emit(Event{Name: EventCallStart})
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("after Off: got %v, want [second]", got)
	}
	if n := e.Len(EventCallStart); n != 1 {
		t.Errorf("Len: got %d, want 1", n)
	}
}

func TestEmitterOffDuringEmit(t *testing.T) {
	var e Emitter
	calls := 0
	var sub Subscription
	sub = e.On(EventMessage, func(Event) {
		calls++
		e.Off(sub)
	})

	e.Emit(Event{Name: EventMessage})
	e.Emit(Event{Name: EventMessage})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if n := e.Len(EventMessage); n != 0 {
		t.Errorf("Len: got %d, want 0", n)
	}
}

func TestEmitterNoHandlers(t *testing.T) {
	var e Emitter
	e.Emit(Event{Name: EventError})
	if e.Off(Subscription{Name: EventError}) {
		t.Error("Off on an empty emitter returned true")
	}
}

func TestIsFinalTranscript(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want bool
	}{
		{"nil", nil, false},
		{"final transcript", &Message{Type: MessageTypeTranscript, TranscriptType: TranscriptTypeFinal}, true},
		{"partial transcript", &Message{Type: MessageTypeTranscript, TranscriptType: TranscriptTypePartial}, false},
		{"other type", &Message{Type: "status-update", TranscriptType: TranscriptTypeFinal}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsFinalTranscript(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
