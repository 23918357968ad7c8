// Package session owns the connection lifecycle against a Data Bucket
// capture server: the two-step handshake (reachability probe, then
// authentication), credential persistence, and session restoration at
// startup.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ajoealex/data-bucket-ui/pkg/client"
)

// Keys under which the session is persisted in the key-value store.
const (
	KeyServerURL = "serverUrl"
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeyCommunity = "communityServer"
)

// Sentinel errors for handshake failures.
var (
	// ErrServerUnreachable means the reachability probe could not complete.
	ErrServerUnreachable = errors.New("capture server unreachable")

	// ErrServerMisbehaving means the probe completed but the response was
	// not the expected readiness signal.
	ErrServerMisbehaving = errors.New("capture server returned an unexpected probe response")

	// ErrBlacklisted means the server refused the client permanently.
	ErrBlacklisted = errors.New("blacklisted by capture server")

	// ErrNotConnected is returned by operations that need an active session.
	ErrNotConnected = errors.New("not connected to a capture server")
)

// finalAttemptThreshold is the remaining-attempts count at or below which an
// authentication failure is presented as a final-attempt warning.
const finalAttemptThreshold = 3

// AuthError is an authentication denial that is not a blacklisting. When the
// server reports how many attempts remain before lockout, HasRemaining is
// true and RemainingAttempts holds the count.
type AuthError struct {
	Message           string
	RemainingAttempts int
	HasRemaining      bool
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "authentication failed"
	}
	if e.HasRemaining {
		return fmt.Sprintf("%s (%d attempts remaining)", msg, e.RemainingAttempts)
	}
	return msg
}

// FinalAttempt reports whether the failure should be presented with elevated
// severity because lockout is imminent.
func (e *AuthError) FinalAttempt() bool {
	return e.HasRemaining && e.RemainingAttempts <= finalAttemptThreshold
}

// Connection is an established session against a capture server. Credentials
// may both be empty for anonymous servers.
type Connection struct {
	ServerURL       string
	Username        string
	Password        string
	CommunityServer bool
}

// Anonymous reports whether the connection carries no credentials.
func (c *Connection) Anonymous() bool {
	return c.Username == "" && c.Password == ""
}

// Store is the durable key-value persistence surface for session state.
// Implementations must tolerate Remove of absent keys.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// ClientFactory builds a capture server client for a candidate connection.
// Swapped out in tests.
type ClientFactory func(serverURL, username, password string) client.Client

// Manager owns the single active Connection per client instance.
type Manager struct {
	store     Store
	logger    *slog.Logger
	newClient ClientFactory

	mu      sync.Mutex
	current *Connection
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClientFactory replaces how capture server clients are constructed.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) { m.newClient = f }
}

// NewManager creates a session manager backed by the given store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: slog.Default(),
		newClient: func(serverURL, username, password string) client.Client {
			return client.New(serverURL, username, password)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect performs the two-step handshake and, on success, persists the
// connection and makes it current. Failures map to the package's error
// taxonomy and leave no session established.
func (m *Manager) Connect(ctx context.Context, serverURL, username, password string) (*Connection, error) {
	return m.connect(ctx, serverURL, username, password, false)
}

// ConnectAnonymous connects without credentials.
func (m *Manager) ConnectAnonymous(ctx context.Context, serverURL string) (*Connection, error) {
	return m.connect(ctx, serverURL, "", "", false)
}

// ConnectCommunity connects anonymously to a preconfigured community server
// and marks the connection accordingly.
func (m *Manager) ConnectCommunity(ctx context.Context, serverURL string) (*Connection, error) {
	return m.connect(ctx, serverURL, "", "", true)
}

func (m *Manager) connect(ctx context.Context, serverURL, username, password string, community bool) (*Connection, error) {
	c := m.newClient(serverURL, username, password)

	// Step 1: reachability probe. Abort before attempting authentication.
	ping, err := c.Ping(ctx)
	if err != nil {
		if client.IsConnectionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrServerMisbehaving, err)
	}
	if !ping.Ready() {
		return nil, fmt.Errorf("%w: status %q", ErrServerMisbehaving, ping.Status)
	}

	// Step 2: authentication. The server can drop between the two steps, so
	// transport failures map the same way as probe failures.
	auth, err := c.Authenticate(ctx)
	if err != nil {
		if client.IsConnectionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrServerMisbehaving, err)
	}
	if !auth.Authenticated {
		if auth.Blacklisted {
			return nil, ErrBlacklisted
		}
		authErr := &AuthError{Message: auth.Error}
		if auth.RemainingAttempts != nil {
			authErr.HasRemaining = true
			authErr.RemainingAttempts = *auth.RemainingAttempts
		}
		return nil, authErr
	}

	conn := &Connection{
		ServerURL:       serverURL,
		Username:        username,
		Password:        password,
		CommunityServer: community,
	}
	if err := m.persist(conn); err != nil {
		// The handshake succeeded; a broken store should not block entry.
		m.logger.Warn("failed to persist session", "error", err)
	}

	m.mu.Lock()
	m.current = conn
	m.mu.Unlock()

	m.logger.Info("connected to capture server", "url", serverURL, "anonymous", conn.Anonymous())
	return conn, nil
}

// Disconnect clears the persisted session and discards in-memory state.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	var firstErr error
	for _, key := range []string{KeyServerURL, KeyUsername, KeyPassword, KeyCommunity} {
		if err := m.store.Remove(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.logger.Info("disconnected from capture server")
	return firstErr
}

// Restore reconstructs a Connection purely from persisted storage without
// re-validating it. The first subsequent API call surfaces any staleness as
// an ordinary API error. Returns false when no session is persisted.
func (m *Manager) Restore() (*Connection, bool) {
	serverURL, ok := m.store.Get(KeyServerURL)
	if !ok || serverURL == "" {
		return nil, false
	}
	username, _ := m.store.Get(KeyUsername)
	password, _ := m.store.Get(KeyPassword)
	community, _ := m.store.Get(KeyCommunity)

	conn := &Connection{
		ServerURL:       serverURL,
		Username:        username,
		Password:        password,
		CommunityServer: community == "true",
	}

	m.mu.Lock()
	m.current = conn
	m.mu.Unlock()
	return conn, true
}

// Current returns the active Connection, or nil when disconnected.
func (m *Manager) Current() *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Client builds a capture server client for the active Connection.
func (m *Manager) Client() (client.Client, error) {
	conn := m.Current()
	if conn == nil {
		return nil, ErrNotConnected
	}
	return m.newClient(conn.ServerURL, conn.Username, conn.Password), nil
}

func (m *Manager) persist(conn *Connection) error {
	community := "false"
	if conn.CommunityServer {
		community = "true"
	}
	pairs := []struct{ key, value string }{
		{KeyServerURL, conn.ServerURL},
		{KeyUsername, conn.Username},
		{KeyPassword, conn.Password},
		{KeyCommunity, community},
	}
	for _, p := range pairs {
		if err := m.store.Set(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}
