package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ai-interviewer/interviewer/internal/callsession"
)

const socketWriteTimeout = 5 * time.Second

// Browser -> server.
type clientFrame struct {
	Type string `json:"type"`
}

const (
	clientStart = "start"
	clientEnd   = "end"
)

// Server -> browser.
type serverFrame struct {
	Type    string            `json:"type"`
	View    *callsession.View `json:"view,omitempty"`
	Path    string            `json:"path,omitempty"`
	Message string            `json:"message,omitempty"`
}

// callSocket is the browser end of a call view. It renders controller views
// and carries navigation back to the page.
type callSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (cs *callSocket) send(f serverFrame) {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()

	_ = cs.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if err := cs.conn.WriteJSON(f); err != nil {
		log.Printf("[Web] Call socket write failed: %v", err)
	}
}

func (cs *callSocket) Render(v callsession.View) {
	cs.send(serverFrame{Type: "view", View: &v})
}

func (cs *callSocket) NavigateHome() {
	cs.send(serverFrame{Type: "navigate", Path: "/"})
}

func (cs *callSocket) sendError(msg string) {
	cs.send(serverFrame{Type: "error", Message: msg})
}

// shutdown closes the socket with a going-away frame. The read loop of the
// view then fails and tears the view down.
func (cs *callSocket) shutdown() {
	cs.writeMu.Lock()
	_ = cs.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
	cs.writeMu.Unlock()
	cs.conn.Close()
}

// callView is one open call page: its socket, its controller and the start
// commands still in flight. Starts run off the read loop so that an end
// command is handled while the agent is still connecting.
type callView struct {
	sock    *callSocket
	ctrl    *callsession.Controller
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  int
	pending map[int]context.CancelFunc
	starts  sync.WaitGroup
}

func newCallView(parent context.Context, sock *callSocket, timeout time.Duration) *callView {
	ctx, cancel := context.WithCancel(parent)
	return &callView{
		sock:    sock,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[int]context.CancelFunc),
	}
}

func (v *callView) dispatch(kind string) {
	switch kind {
	case clientStart:
		v.start()
	case clientEnd:
		v.end()
	default:
		v.sock.sendError("Unknown command " + kind + ".")
	}
}

func (v *callView) start() {
	ctx, cancel := context.WithTimeout(v.ctx, v.timeout)
	v.mu.Lock()
	v.nextID++
	id := v.nextID
	v.pending[id] = cancel
	v.mu.Unlock()

	v.starts.Add(1)
	go func() {
		defer v.starts.Done()
		defer v.forget(id)

		err := v.ctrl.StartCall(ctx)
		switch {
		case err == nil:
		case errors.Is(err, callsession.ErrCallInProgress):
			v.sock.sendError("The call is already in progress.")
		case errors.Is(err, callsession.ErrClosed), errors.Is(ctx.Err(), context.Canceled):
			// Ended by the user or the view is closing.
		default:
			v.sock.sendError("Could not start the call.")
		}
	}()
}

// end abandons any start still connecting, then ends the call.
func (v *callView) end() {
	v.mu.Lock()
	for _, cancel := range v.pending {
		cancel()
	}
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(v.ctx, v.timeout)
	defer cancel()
	if err := v.ctrl.EndCall(ctx); err != nil {
		v.sock.sendError("The call did not stop cleanly.")
	}
}

func (v *callView) forget(id int) {
	v.mu.Lock()
	cancel := v.pending[id]
	delete(v.pending, id)
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// close cancels pending starts and waits for them to return.
func (v *callView) close() {
	v.cancel()
	v.starts.Wait()
}

// handleCall hosts one interview call view over a websocket. The view owns a
// voice agent connection and a controller for as long as the socket is open.
func (s *Server) handleCall(c *gin.Context) {
	u := currentUser(c)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Web] Call socket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	sock := &callSocket{conn: conn}

	view := newCallView(c.Request.Context(), sock, s.cfg.CommandTimeout)
	defer view.cancel()
	if !s.trackView(view) {
		sock.sendError("The server is shutting down.")
		return
	}
	defer s.untrackView(view)

	agent := s.newAgent()
	defer agent.Close()

	ctrl, err := callsession.NewController(agent, sock, s.cfg.WorkflowID, callsession.Params{
		UserName: u.Name,
		UserID:   u.ID,
		Kind:     callsession.KindGenerate,
	}, callsession.WithRenderer(sock))
	if err != nil {
		log.Printf("[Web] Creating call session for %s: %v", u.ID, err)
		sock.sendError("Could not create the call session.")
		return
	}
	defer ctrl.Close()

	if err := s.calls.Acquire(u.ID, ctrl); err != nil {
		sock.sendError("A call is already in progress in another window.")
		return
	}
	defer s.calls.Release(u.ID, ctrl)

	view.ctrl = ctrl
	defer view.close()

	log.Printf("[Web] Call view %s opened for user %s", ctrl.ID(), ctrl.Params().UserID)
	sock.Render(ctrl.View())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Web] Call view %s read error: %v", ctrl.ID(), err)
			}
			log.Printf("[Web] Call view %s closed", ctrl.ID())
			return
		}

		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			sock.sendError("Malformed frame.")
			continue
		}
		view.dispatch(f.Type)
	}
}

func (s *Server) trackView(v *callView) bool {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	if s.closing {
		return false
	}
	s.views[v] = struct{}{}
	s.viewsWG.Add(1)
	return true
}

func (s *Server) untrackView(v *callView) {
	s.viewsMu.Lock()
	delete(s.views, v)
	s.viewsMu.Unlock()
	s.viewsWG.Done()
}

// CloseCalls closes every open call view and waits until each has torn down
// its controller and voice agent, or ctx is done. New call views are refused
// afterwards. http.Server.Shutdown does not reach hijacked websockets, so
// call this alongside it.
func (s *Server) CloseCalls(ctx context.Context) error {
	s.viewsMu.Lock()
	s.closing = true
	views := make([]*callView, 0, len(s.views))
	for v := range s.views {
		views = append(views, v)
	}
	s.viewsMu.Unlock()

	for _, v := range views {
		v.sock.shutdown()
	}

	done := make(chan struct{})
	go func() {
		s.viewsWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
