package callsession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ai-interviewer/interviewer/internal/voiceagent"
)

var (
	ErrCallInProgress = errors.New("call already in progress")
	ErrClosed         = errors.New("call session closed")
)

// VoiceAgent is the subset of the voice agent client the controller drives.
type VoiceAgent interface {
	On(name voiceagent.EventName, fn voiceagent.Handler) voiceagent.Subscription
	Off(sub voiceagent.Subscription)
	Start(ctx context.Context, workflowID string, opts voiceagent.StartOptions) error
	Stop(ctx context.Context) error
}

// Router navigates the hosting view.
type Router interface {
	NavigateHome()
}

// Renderer receives a fresh View after every state change, in order.
type Renderer interface {
	Render(View)
}

type Option func(*Controller)

// WithRenderer sends a View to r after every state change.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

// Controller owns the lifecycle of one call session: it subscribes to the
// voice agent on creation, turns agent events into View updates, and issues
// start/stop commands. Close must be called when the hosting view goes away.
type Controller struct {
	id       string
	agent    VoiceAgent
	router   Router
	renderer Renderer
	params   Params
	start    StartCommand

	mu         sync.Mutex
	status     Status
	transcript []TranscriptMessage
	isSpeaking bool
	closed     bool
	subs       []voiceagent.Subscription

	// renderMu keeps snapshots and Render calls in the same order.
	renderMu sync.Mutex
}

// NewController builds the start command for params and subscribes to the
// six agent events. The caller owns the controller and must Close it.
func NewController(agent VoiceAgent, router Router, workflowID string, params Params, opts ...Option) (*Controller, error) {
	if agent == nil || router == nil {
		return nil, fmt.Errorf("voice agent and router are required")
	}
	start, err := BuildStartCommand(workflowID, params)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		id:     uuid.NewString(),
		agent:  agent,
		router: router,
		params: params,
		start:  start,
		status: StatusInactive,
	}
	for _, opt := range opts {
		opt(c)
	}

	handlers := []struct {
		name voiceagent.EventName
		fn   voiceagent.Handler
	}{
		{voiceagent.EventCallStart, c.onCallStart},
		{voiceagent.EventCallEnd, c.onCallEnd},
		{voiceagent.EventMessage, c.onMessage},
		{voiceagent.EventSpeechStart, c.onSpeechStart},
		{voiceagent.EventSpeechEnd, c.onSpeechEnd},
		{voiceagent.EventError, c.onError},
	}
	c.mu.Lock()
	for _, h := range handlers {
		c.subs = append(c.subs, agent.On(h.name, h.fn))
	}
	c.mu.Unlock()

	log.Printf("[CallSession] %s: created for user %s (kind=%s)", c.id, params.UserID, params.Kind)
	return c, nil
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Params() Params {
	return c.params
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// View returns a copy of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Status:     c.status,
		Transcript: make([]TranscriptMessage, len(c.transcript)),
		IsSpeaking: c.isSpeaking,
	}
	copy(v.Transcript, c.transcript)
	if n := len(c.transcript); n > 0 {
		v.LastMessage = c.transcript[n-1].Content
	}
	return v
}

// StartCall moves an Inactive or Finished session to Connecting and issues
// exactly one start command. A session already Connecting or Active is left
// alone and ErrCallInProgress is returned. If the agent refuses to start, the
// session finishes as if the call had ended.
func (c *Controller) StartCall(ctx context.Context) error {
	var err error
	ran := c.apply(func() bool {
		if c.status.InCall() {
			err = ErrCallInProgress
			return false
		}
		c.setStatusLocked(StatusConnecting)
		return true
	})
	if !ran {
		return ErrClosed
	}
	if err != nil {
		return err
	}

	if err := c.agent.Start(ctx, c.start.WorkflowID, voiceagent.StartOptions{
		VariableValues: c.start.variables(),
	}); err != nil {
		log.Printf("[CallSession] %s: start failed: %v", c.id, err)
		c.apply(func() bool {
			if c.status != StatusConnecting {
				return false
			}
			c.setStatusLocked(StatusFinished)
			return true
		})
		return fmt.Errorf("start call: %w", err)
	}
	return nil
}

// EndCall finishes a Connecting or Active session and always issues a stop
// command, whether or not the call was ever established.
func (c *Controller) EndCall(ctx context.Context) error {
	c.apply(func() bool {
		if !c.status.InCall() {
			return false
		}
		c.setStatusLocked(StatusFinished)
		return true
	})

	if err := c.agent.Stop(ctx); err != nil {
		log.Printf("[CallSession] %s: stop failed: %v", c.id, err)
		return fmt.Errorf("end call: %w", err)
	}
	return nil
}

// Close removes every subscription registered by NewController. Once it
// returns, agent events have no effect on the controller. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.agent.Off(sub)
	}
	log.Printf("[CallSession] %s: closed", c.id)
}

func (c *Controller) onCallStart(voiceagent.Event) {
	c.apply(func() bool {
		if c.status != StatusConnecting {
			log.Printf("[CallSession] %s: call-start ignored in %s", c.id, c.status)
			return false
		}
		c.setStatusLocked(StatusActive)
		return true
	})
}

func (c *Controller) onCallEnd(voiceagent.Event) {
	c.apply(func() bool {
		if c.status == StatusFinished {
			return false
		}
		c.setStatusLocked(StatusFinished)
		return true
	})
}

func (c *Controller) onMessage(ev voiceagent.Event) {
	if !ev.Message.IsFinalTranscript() {
		return
	}
	role, ok := ParseRole(ev.Message.Role)
	if !ok {
		log.Printf("[CallSession] %s: transcript with unknown role %q dropped", c.id, ev.Message.Role)
		return
	}
	msg := TranscriptMessage{Role: role, Content: ev.Message.Transcript}
	c.apply(func() bool {
		c.transcript = append(c.transcript, msg)
		return true
	})
}

func (c *Controller) onSpeechStart(voiceagent.Event) {
	c.setSpeaking(true)
}

func (c *Controller) onSpeechEnd(voiceagent.Event) {
	c.setSpeaking(false)
}

func (c *Controller) setSpeaking(speaking bool) {
	c.apply(func() bool {
		if c.isSpeaking == speaking {
			return false
		}
		c.isSpeaking = speaking
		return true
	})
}

func (c *Controller) onError(ev voiceagent.Event) {
	c.apply(func() bool {
		log.Printf("[CallSession] %s: voice agent error in %s: %v", c.id, c.status, ev.Err)
		return false
	})
}

// apply runs fn under the lock unless the controller is closed. fn reports
// whether it changed the view. Entering Finished is detected here, on the
// edge, and fires navigation exactly once per entry. apply reports whether
// fn ran.
func (c *Controller) apply(fn func() bool) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	before := c.status
	changed := fn()
	entered := before != StatusFinished && c.status == StatusFinished
	c.mu.Unlock()

	if changed {
		c.publish()
	}
	if entered {
		c.router.NavigateHome()
	}
	return true
}

func (c *Controller) setStatusLocked(next Status) {
	if c.status != next {
		log.Printf("[CallSession] %s: %s -> %s", c.id, c.status, next)
	}
	c.status = next
}

func (c *Controller) publish() {
	if c.renderer == nil {
		return
	}
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	v := c.viewLocked()
	c.mu.Unlock()

	c.renderer.Render(v)
}
