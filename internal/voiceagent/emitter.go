package voiceagent

import "sync"

// Subscription is the handle returned by On. Pass it to Off to unsubscribe.
type Subscription struct {
	Name EventName
	id   uint64
}

type registration struct {
	id uint64
	fn Handler
}

// Emitter is a registry of named event handlers. The zero value is ready to use.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventName][]registration
}

func (e *Emitter) On(name EventName, fn Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[EventName][]registration)
	}
	e.nextID++
	e.handlers[name] = append(e.handlers[name], registration{id: e.nextID, fn: fn})
	return Subscription{Name: name, id: e.nextID}
}

// Off removes the handler registered under sub. It reports whether anything
// was removed. Off does not wait for an Emit already in progress, so a
// handler copied out by that Emit may still run once after Off returns.
func (e *Emitter) Off(sub Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := e.handlers[sub.Name]
	for i, r := range regs {
		if r.id != sub.id {
			continue
		}
		kept := make([]registration, 0, len(regs)-1)
		kept = append(kept, regs[:i]...)
		kept = append(kept, regs[i+1:]...)
		if len(kept) == 0 {
			delete(e.handlers, sub.Name)
		} else {
			e.handlers[sub.Name] = kept
		}
		return true
	}
	return false
}

// Emit calls the handlers registered for ev.Name in registration order, on
// the caller's goroutine. Handlers may call On or Off.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	regs := e.handlers[ev.Name]
	e.mu.RUnlock()

	for _, r := range regs {
		r.fn(ev)
	}
}

// Len returns the number of handlers registered for name.
func (e *Emitter) Len(name EventName) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[name])
}
