package trust

import (
	"sync"
	"time"
)

// ConfirmationFunc is the inbound channel a transport wires up so a human
// operator can interactively approve a DESTRUCTIVE call. It returns true if
// the operator confirmed.
type ConfirmationFunc func(toolName string, args map[string]any) bool

// Context is the session-scoped authorization state. It lives for the
// duration of one MCP connection and is never shared across sessions.
type Context struct {
	SessionID string

	mu               sync.Mutex
	base             Level
	level            Level
	exceptions       map[string]struct{}
	elevationExpires time.Time
	confirm          ConfirmationFunc
}

// NewContext creates a Trust Context at the given starting level.
func NewContext(sessionID string, level Level) *Context {
	return &Context{
		SessionID:  sessionID,
		base:       level,
		level:      level,
		exceptions: make(map[string]struct{}),
	}
}

// Level returns the context's current trust level, accounting for an
// elevation grant that may have since expired.
func (c *Context) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levelLocked()
}

func (c *Context) levelLocked() Level {
	if !c.elevationExpires.IsZero() && time.Now().After(c.elevationExpires) {
		return c.base
	}
	return c.level
}

// Elevate raises the context's level until expiry (zero means no expiry).
func (c *Context) Elevate(level Level, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
	c.elevationExpires = expiry
}

// GrantException allows toolName to bypass its trust-class check once the
// context reaches ELEVATED.
func (c *Context) GrantException(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exceptions[toolName] = struct{}{}
}

// HasException reports whether toolName has a granted exception.
func (c *Context) HasException(toolName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.exceptions[toolName]
	return ok
}

// SetConfirmationCallback wires the interactive-approval channel for
// DESTRUCTIVE calls.
func (c *Context) SetConfirmationCallback(fn ConfirmationFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = fn
}

// Confirm invokes the confirmation callback, if one is set. Absent a
// callback, DESTRUCTIVE calls are never confirmed (fail closed).
func (c *Context) Confirm(toolName string, args map[string]any) bool {
	c.mu.Lock()
	fn := c.confirm
	c.mu.Unlock()
	if fn == nil {
		return false
	}
	return fn(toolName, args)
}
