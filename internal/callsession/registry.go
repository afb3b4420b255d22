package callsession

import "sync"

// Registry tracks the live controller of each user so that a user never has
// two overlapping calls on the voice agent.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]*Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Controller)}
}

// Acquire registers c as userID's live controller. It fails with
// ErrCallInProgress if a different controller already holds the slot.
func (r *Registry) Acquire(userID string, c *Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.byUser[userID]; ok && cur != c {
		return ErrCallInProgress
	}
	r.byUser[userID] = c
	return nil
}

// Release frees userID's slot if c still holds it.
func (r *Registry) Release(userID string, c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byUser[userID] == c {
		delete(r.byUser, userID)
	}
}

// Count returns the number of users with a live controller.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
