package readers

import (
	"fmt"
	"sync"
)

// Key identifies one content item participating in live engagement.
type Key struct {
	ContentType string
	ContentID   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.ContentType, k.ContentID)
}

// Count pairs a key with its post-mutation reader count, for broadcast after
// disconnect cleanup.
type Count struct {
	Key     Key
	Readers int
}

// Counter tracks which users are viewing which content items. Membership is
// held per connection and rolled up per user: two tabs of the same user count
// as one reader, and the user stays counted until the last of their tabs on
// that item leaves. Removing the user outright on any single tab's leave would
// under-count.
type Counter struct {
	mu     sync.Mutex
	byKey  map[Key]map[string]map[string]struct{} // key -> userID -> connection ids
	byConn map[string]map[Key]struct{}            // connID -> keys it joined
}

func NewCounter() *Counter {
	return &Counter{
		byKey:  make(map[Key]map[string]map[string]struct{}),
		byConn: make(map[string]map[Key]struct{}),
	}
}

// Join records that connID (owned by userID) is viewing key and returns the
// distinct-user count. Idempotent per connection.
func (c *Counter) Join(key Key, userID, connID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	users, ok := c.byKey[key]
	if !ok {
		users = make(map[string]map[string]struct{})
		c.byKey[key] = users
	}
	conns, ok := users[userID]
	if !ok {
		conns = make(map[string]struct{})
		users[userID] = conns
	}
	conns[connID] = struct{}{}

	keys, ok := c.byConn[connID]
	if !ok {
		keys = make(map[Key]struct{})
		c.byConn[connID] = keys
	}
	keys[key] = struct{}{}

	return len(users)
}

// Leave removes connID's membership on key and returns the resulting
// distinct-user count. The user is dropped from the set only when no other
// connection of theirs still holds the key; the key itself is deleted once the
// last user leaves.
func (c *Counter) Leave(key Key, userID, connID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaveLocked(key, userID, connID)
}

func (c *Counter) leaveLocked(key Key, userID, connID string) int {
	if keys, ok := c.byConn[connID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byConn, connID)
		}
	}

	users, ok := c.byKey[key]
	if !ok {
		return 0
	}
	if conns, ok := users[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(users, userID)
		}
	}
	if len(users) == 0 {
		delete(c.byKey, key)
		return 0
	}
	return len(users)
}

// DropConnection clears every membership held by a disconnecting connection
// and returns the affected keys with their new counts.
func (c *Counter) DropConnection(userID, connID string) []Count {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.byConn[connID]
	if !ok {
		return nil
	}
	out := make([]Count, 0, len(keys))
	for key := range keys {
		out = append(out, Count{Key: key, Readers: c.leaveLocked(key, userID, connID)})
	}
	return out
}

// Readers reports the distinct-user count for key.
func (c *Counter) Readers(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey[key])
}
