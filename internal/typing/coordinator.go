package typing

import (
	"sync"
	"time"
)

// State is the current typist of one conversation. Only the latest typist per
// conversation is tracked.
type State struct {
	UserID   string
	Username string
}

// Coordinator tracks who is typing in which conversation. Clients are expected
// to send an explicit stop after ~1.1s of inactivity; the coordinator keeps a
// server-side expiry as a backstop for clients that vanish mid-type, firing
// onExpire so the stop can still be broadcast.
type Coordinator struct {
	mu       sync.Mutex
	ttl      time.Duration
	active   map[string]*entry // conversationID -> current typist
	onExpire func(conversationID, userID string)
}

type entry struct {
	state State
	timer *time.Timer
}

func NewCoordinator(ttl time.Duration, onExpire func(conversationID, userID string)) *Coordinator {
	return &Coordinator{
		ttl:      ttl,
		active:   make(map[string]*entry),
		onExpire: onExpire,
	}
}

// Start marks userID as typing in the conversation. It returns false when the
// same user is already the active typist, so rapid keystrokes collapse into a
// single broadcast; the expiry window is refreshed either way.
func (c *Coordinator) Start(conversationID, userID, username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.active[conversationID]; ok {
		if e.state.UserID == userID {
			if e.timer != nil {
				e.timer.Reset(c.ttl)
			}
			return false
		}
		// latest typist wins
		if e.timer != nil {
			e.timer.Stop()
		}
	}

	e := &entry{state: State{UserID: userID, Username: username}}
	if c.ttl > 0 {
		e.timer = time.AfterFunc(c.ttl, func() { c.expire(conversationID, userID) })
	}
	c.active[conversationID] = e
	return true
}

// Stop clears the typing state if userID is the active typist. Returns false
// when there was nothing to clear, so duplicate stops broadcast nothing.
func (c *Coordinator) Stop(conversationID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked(conversationID, userID)
}

func (c *Coordinator) clearLocked(conversationID, userID string) bool {
	e, ok := c.active[conversationID]
	if !ok || e.state.UserID != userID {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.active, conversationID)
	return true
}

func (c *Coordinator) expire(conversationID, userID string) {
	c.mu.Lock()
	cleared := c.clearLocked(conversationID, userID)
	c.mu.Unlock()
	if cleared && c.onExpire != nil {
		c.onExpire(conversationID, userID)
	}
}

// Typist reports the active typist for a conversation, if any.
func (c *Coordinator) Typist(conversationID string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.active[conversationID]
	if !ok {
		return State{}, false
	}
	return e.state, true
}
