package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mektep-hub/mektep-portal/internal/domain/session"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/external/mektep"
)

// SessionManager owns the credentials, the bearer token, and the
// login/validate state machine. Login and Validate never return errors:
// transport and authentication failures are swallowed into a boolean so the
// UI can stay on cached data. A failed validation leaves the session
// pending re-login; the token is overwritten only by the next successful
// login, never cleared.
type SessionManager struct {
	client *mektep.Client
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	session session.Session
}

// NewSessionManager creates a session manager for the given credentials.
func NewSessionManager(client *mektep.Client, store Store, logger *slog.Logger, creds session.Credentials) *SessionManager {
	return &SessionManager{
		client:  client,
		store:   store,
		logger:  logger,
		session: session.Session{Credentials: creds},
	}
}

// restore loads a previously persisted session so it survives process
// restarts. A stored session for a different username is ignored. Store
// failures are non-fatal; the manager just starts unauthenticated.
func (m *SessionManager) restore(ctx context.Context) {
	ok, err := m.store.Contains(ctx, KeyUser)
	if err != nil || !ok {
		return
	}

	doc, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		m.logger.Warn("session restore failed", "error", err)
		return
	}

	var stored session.Session
	if err := json.Unmarshal([]byte(doc), &stored); err != nil {
		m.logger.Warn("session cache is malformed", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Username != "" && m.session.Username != stored.Username {
		return
	}
	m.session = stored
}

// Login posts the credentials to the platform. On success the returned token
// and display name are stored and the full session (plaintext password
// included) is persisted under the user key. On any transport or parse
// failure it returns false and leaves the prior token untouched.
func (m *SessionManager) Login(ctx context.Context) bool {
	m.mu.RLock()
	creds := m.session.Credentials
	m.mu.RUnlock()

	out, err := m.client.Login(ctx, creds.Username, creds.Password, creds.Server)
	if err != nil {
		m.logger.Warn("login failed", "username", creds.Username, "error", err)
		return false
	}

	m.mu.Lock()
	m.session.Token = out.Token
	m.session.DisplayName = out.DisplayName
	snapshot := m.session
	m.mu.Unlock()

	if err := m.persist(ctx, snapshot); err != nil {
		m.logger.Warn("session persist failed", "error", err)
	}

	m.logger.Info("logged in", "username", creds.Username, "display_name", out.DisplayName)
	return true
}

// Validate checks whether the current token is still accepted. An empty
// token is invalid without a network call. A 401 or any unexpected response
// reads as invalid, never as a fault.
func (m *SessionManager) Validate(ctx context.Context) bool {
	token := m.Token()
	if token == "" {
		return false
	}

	ok, err := m.client.ValidateToken(ctx, token)
	if err != nil {
		m.logger.Warn("token validation failed", "error", err)
		return false
	}
	return ok
}

// Token returns the current bearer token; empty means unauthenticated.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Token
}

// Session returns a snapshot of the current session.
func (m *SessionManager) Session() session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *SessionManager) persist(ctx context.Context, snapshot session.Session) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, KeyUser, string(doc))
}
