// Package kiosk tracks walk-up kiosk sessions opened with a PIN.
package kiosk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/model"
)

// DefaultIdleTimeout ends a kiosk session after this long without activity.
const DefaultIdleTimeout = 15 * time.Minute

// Session is one signed-in user at a kiosk.
type Session struct {
	ID       string    `json:"session_id"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Expires  time.Time `json:"expires_at"`
}

// Manager holds kiosk sessions in memory. Sessions do not survive a
// restart; kiosk users simply sign in again.
type Manager struct {
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager whose sessions expire after idle without
// activity. A non-positive idle uses DefaultIdleTimeout.
func NewManager(idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for user and returns a copy of it.
func (m *Manager) Open(user *model.User) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Expires:  m.now().Add(m.idle),
	}
	m.sessions[s.ID] = s
	return *s
}

// Touch returns the session and extends its expiry. Unknown and expired
// sessions report false; expired ones are dropped.
func (m *Manager) Touch(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	now := m.now()
	if !now.Before(s.Expires) {
		delete(m.sessions, id)
		return Session{}, false
	}
	s.Expires = now.Add(m.idle)
	return *s, true
}

// Close ends a session. Closing an unknown session is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// CloseUser ends every session belonging to userID, for example after the
// user's PIN changed or the user was deleted.
func (m *Manager) CloseUser(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Sweep drops expired sessions and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if !now.Before(s.Expires) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of sessions held, including expired ones not yet
// swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("expired kiosk sessions", "count", n)
			}
		}
	}
}
