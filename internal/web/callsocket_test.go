package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ai-interviewer/interviewer/internal/auth"
	"github.com/ai-interviewer/interviewer/internal/callsession"
	"github.com/ai-interviewer/interviewer/internal/voiceagent"
)

type fakeAgent struct {
	voiceagent.Emitter

	mu     sync.Mutex
	starts []voiceagent.StartOptions
	stops  int
	closed atomic.Bool

	// blockStart makes Start wait for its context, like a dial that never
	// completes.
	blockStart    bool
	startReturned atomic.Bool
}

func (a *fakeAgent) Off(sub voiceagent.Subscription) {
	a.Emitter.Off(sub)
}

func (a *fakeAgent) Start(ctx context.Context, _ string, opts voiceagent.StartOptions) error {
	a.mu.Lock()
	a.starts = append(a.starts, opts)
	block := a.blockStart
	a.mu.Unlock()

	if !block {
		return nil
	}
	<-ctx.Done()
	a.startReturned.Store(true)
	return ctx.Err()
}

func (a *fakeAgent) Stop(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return nil
}

func (a *fakeAgent) Close() error {
	a.closed.Store(true)
	return nil
}

func agentFactory(setup ...func(*fakeAgent)) (AgentFactory, <-chan *fakeAgent) {
	ch := make(chan *fakeAgent, 4)
	return func() CallAgent {
		a := &fakeAgent{}
		for _, fn := range setup {
			fn(a)
		}
		ch <- a
		return a
	}, ch
}

func blockingStart(a *fakeAgent) { a.blockStart = true }

func dialCall(t *testing.T, srv *httptest.Server, cookie string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/interview/call"
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: auth.SessionCookieName, Value: cookie}).String())

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f serverFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectView(t *testing.T, conn *websocket.Conn, want callsession.Status) callsession.View {
	t.Helper()
	f := readFrame(t, conn)
	if f.Type != "view" || f.View == nil {
		t.Fatalf("got frame %+v, want view", f)
	}
	if f.View.Status != want {
		t.Fatalf("view status: got %s, want %s", f.View.Status, want)
	}
	return *f.View
}

func nextAgent(t *testing.T, ch <-chan *fakeAgent) *fakeAgent {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("no agent created")
		return nil
	}
}

func (a *fakeAgent) startCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.starts)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCallSocketLifecycle(t *testing.T) {
	factory, agents := agentFactory()
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialCall(t, srv, "good")
	agent := nextAgent(t, agents)
	expectView(t, conn, callsession.StatusInactive)

	if err := conn.WriteJSON(clientFrame{Type: clientStart}); err != nil {
		t.Fatal(err)
	}
	expectView(t, conn, callsession.StatusConnecting)
	waitFor(t, "start command", func() bool { return agent.startCount() == 1 })

	agent.Emit(voiceagent.Event{Name: voiceagent.EventCallStart})
	expectView(t, conn, callsession.StatusActive)

	agent.Emit(voiceagent.Event{Name: voiceagent.EventMessage, Message: &voiceagent.Message{
		Type:           voiceagent.MessageTypeTranscript,
		TranscriptType: voiceagent.TranscriptTypeFinal,
		Role:           "assistant",
		Transcript:     "Tell me about yourself.",
	}})
	v := expectView(t, conn, callsession.StatusActive)
	if v.LastMessage != "Tell me about yourself." {
		t.Errorf("last message: got %q", v.LastMessage)
	}

	if err := conn.WriteJSON(clientFrame{Type: clientEnd}); err != nil {
		t.Fatal(err)
	}
	expectView(t, conn, callsession.StatusFinished)
	if f := readFrame(t, conn); f.Type != "navigate" || f.Path != "/" {
		t.Errorf("got frame %+v, want navigate home", f)
	}

	agent.mu.Lock()
	starts, stops := len(agent.starts), agent.stops
	vars := agent.starts[0].VariableValues
	agent.mu.Unlock()
	if starts != 1 || stops != 1 {
		t.Errorf("commands: starts=%d stops=%d, want 1 and 1", starts, stops)
	}
	if vars["username"] != "Ada" || vars["userid"] != "u1" {
		t.Errorf("start variables: %v", vars)
	}

	conn.Close()
	waitFor(t, "teardown", func() bool {
		return agent.closed.Load() && s.Calls().Count() == 0
	})
	for _, name := range voiceagent.Events {
		if n := agent.Len(name); n != 0 {
			t.Errorf("%s: %d subscriptions left after teardown", name, n)
		}
	}
}

func TestCallSocketRejectsUnknownCommands(t *testing.T) {
	factory, _ := agentFactory()
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialCall(t, srv, "good")
	expectView(t, conn, callsession.StatusInactive)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != "error" {
		t.Errorf("got %+v, want error frame", f)
	}

	if err := conn.WriteJSON(clientFrame{Type: "pause"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != "error" {
		t.Errorf("got %+v, want error frame", f)
	}
}

func TestCallSocketDoubleStart(t *testing.T) {
	factory, agents := agentFactory()
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialCall(t, srv, "good")
	agent := nextAgent(t, agents)
	expectView(t, conn, callsession.StatusInactive)

	conn.WriteJSON(clientFrame{Type: clientStart})
	expectView(t, conn, callsession.StatusConnecting)
	conn.WriteJSON(clientFrame{Type: clientStart})
	if f := readFrame(t, conn); f.Type != "error" {
		t.Errorf("got %+v, want error frame", f)
	}

	waitFor(t, "start command", func() bool { return agent.startCount() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := agent.startCount(); n != 1 {
		t.Errorf("starts: got %d, want 1", n)
	}
}

func TestCallSocketOneCallPerUser(t *testing.T) {
	factory, agents := agentFactory()
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	first := dialCall(t, srv, "good")
	nextAgent(t, agents)
	expectView(t, first, callsession.StatusInactive)

	second := dialCall(t, srv, "good")
	other := nextAgent(t, agents)
	if f := readFrame(t, second); f.Type != "error" {
		t.Errorf("got %+v, want error frame", f)
	}
	waitFor(t, "rejected view teardown", other.closed.Load)
	if n := s.Calls().Count(); n != 1 {
		t.Errorf("live calls: got %d, want 1", n)
	}
}

func TestCallSocketEndWhileConnecting(t *testing.T) {
	factory, agents := agentFactory(blockingStart)
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialCall(t, srv, "good")
	agent := nextAgent(t, agents)
	expectView(t, conn, callsession.StatusInactive)

	conn.WriteJSON(clientFrame{Type: clientStart})
	expectView(t, conn, callsession.StatusConnecting)

	// The agent is still connecting; end must not wait for it.
	conn.WriteJSON(clientFrame{Type: clientEnd})
	expectView(t, conn, callsession.StatusFinished)
	if f := readFrame(t, conn); f.Type != "navigate" {
		t.Errorf("got frame %+v, want navigate", f)
	}

	waitFor(t, "pending start to be abandoned", agent.startReturned.Load)

	agent.mu.Lock()
	starts, stops := len(agent.starts), agent.stops
	agent.mu.Unlock()
	if starts != 1 || stops != 1 {
		t.Errorf("commands: starts=%d stops=%d, want 1 and 1", starts, stops)
	}

	// An abandoned start is not reported as a failure.
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var f serverFrame
	if err := conn.ReadJSON(&f); err == nil {
		t.Errorf("unexpected frame after end: %+v", f)
	}
}

func TestCallSocketCloseWhileConnecting(t *testing.T) {
	factory, agents := agentFactory(blockingStart)
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialCall(t, srv, "good")
	agent := nextAgent(t, agents)
	expectView(t, conn, callsession.StatusInactive)

	conn.WriteJSON(clientFrame{Type: clientStart})
	expectView(t, conn, callsession.StatusConnecting)
	conn.Close()

	waitFor(t, "teardown", func() bool {
		return agent.startReturned.Load() && agent.closed.Load() && s.Calls().Count() == 0
	})
}

func TestCloseCalls(t *testing.T) {
	factory, agents := agentFactory()
	s := newTestServer(nil, nil, factory)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialCall(t, srv, "good")
	agent := nextAgent(t, agents)
	expectView(t, conn, callsession.StatusInactive)
	conn.WriteJSON(clientFrame{Type: clientStart})
	expectView(t, conn, callsession.StatusConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.CloseCalls(ctx); err != nil {
		t.Fatalf("CloseCalls: %v", err)
	}

	if !agent.closed.Load() {
		t.Error("agent still open after CloseCalls")
	}
	if n := s.Calls().Count(); n != 0 {
		t.Errorf("live calls after CloseCalls: got %d, want 0", n)
	}
	for _, name := range voiceagent.Events {
		if n := agent.Len(name); n != 0 {
			t.Errorf("%s: %d subscriptions left", name, n)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("client read: got %v, want going-away close", err)
	}

	late := dialCall(t, srv, "good")
	if f := readFrame(t, late); f.Type != "error" {
		t.Errorf("view opened after CloseCalls: got %+v, want error frame", f)
	}
}
