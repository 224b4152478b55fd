// package credentials manages the delegated authorization credential: the persisted refresh token,
// the in-memory access token, and the interactive browser handshake that produces both.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekcopy/internal/server"
	"github.com/desertthunder/weekcopy/internal/services"
	"github.com/desertthunder/weekcopy/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// Credential is an access token paired with the refresh token that produced it.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Opener shows a URL to the user, usually by launching a browser.
type Opener func(url string) error

// Manager owns the credential shared by the startup routine, the callback handler and scheduled runs.
type Manager struct {
	oauth   services.OAuthService
	store   Store
	logger  *log.Logger
	addr    string
	timeout time.Duration
	open    Opener
	out     io.Writer

	mu      sync.Mutex
	current *Credential
}

// Option configures a [Manager].
type Option func(*Manager)

// WithCallbackAddr sets the host:port the callback listener binds to.
func WithCallbackAddr(addr string) Option {
	return func(m *Manager) { m.addr = addr }
}

// WithAuthTimeout bounds the wait for the browser callback. Zero waits until the context ends.
func WithAuthTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithOpener replaces [shared.OpenBrowser].
func WithOpener(fn Opener) Option {
	return func(m *Manager) {
		if fn != nil {
			m.open = fn
		}
	}
}

// WithOutput sets where user-facing instructions are printed.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) {
		if w != nil {
			m.out = w
		}
	}
}

// NewManager creates a [Manager] that refreshes through oauth and persists to store.
func NewManager(oauth services.OAuthService, store Store, logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	m := &Manager{
		oauth:  oauth,
		store:  store,
		logger: logger,
		addr:   "localhost:3000",
		open:   shared.OpenBrowser,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns a copy of the in-memory credential, or nil before the first refresh or authorization.
func (m *Manager) Current() *Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	c := *m.current
	return &c
}

func (m *Manager) replace(c *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = c
}

// LoadPersistedRefreshToken reads the stored refresh token. A missing or empty token reports false.
func (m *Manager) LoadPersistedRefreshToken(ctx context.Context) (string, bool) {
	token, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("failed to load refresh token", "error", err)
		return "", false
	}
	return token, token != ""
}

// TryRefresh runs the refresh grant, persists the (possibly rotated) refresh token and replaces the
// in-memory credential.
func (m *Manager) TryRefresh(ctx context.Context, refreshToken string) (*Credential, error) {
	token, err := m.oauth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}

	if err := m.store.Save(ctx, cred.RefreshToken); err != nil {
		return nil, err
	}
	m.replace(cred)
	m.logger.Debug("access token refreshed", "expiry", cred.Expiry)
	return cred, nil
}

// AccessToken loads the persisted refresh token and trades it for a fresh access token.
//
// Every failure wraps [shared.ErrAuthFailure]. The interactive flow is never started here.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	refreshToken, ok := m.LoadPersistedRefreshToken(ctx)
	if !ok {
		return "", fmt.Errorf("%w: %w", shared.ErrAuthFailure, shared.ErrNoRefreshToken)
	}

	cred, err := m.TryRefresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAuthFailure, err)
	}
	return cred.AccessToken, nil
}

// Ensure refreshes silently when possible and falls back to [Manager.Authorize].
func (m *Manager) Ensure(ctx context.Context) (*Credential, error) {
	if refreshToken, ok := m.LoadPersistedRefreshToken(ctx); ok {
		cred, err := m.TryRefresh(ctx, refreshToken)
		if err == nil {
			m.logger.Info("using persisted refresh token")
			return cred, nil
		}
		m.logger.Warn("silent refresh failed, starting interactive authorization", "error", err)
	} else {
		m.logger.Info("no refresh token found, starting interactive authorization")
	}
	return m.Authorize(ctx)
}

// Authorize runs the browser consent flow.
//
// A listener is bound on the callback address for the lifetime of the call and shut down before it returns.
// The exchanged refresh token is persisted.
func (m *Manager) Authorize(ctx context.Context) (*Credential, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	handler := server.NewOAuthHandler(ctx, m.oauth, state)
	router := server.NewCallbackRouter()
	router.Use(server.RequestLogger(m.logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.logger.Infof("starting OAuth callback server at %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer m.shutdown(httpServer, ln, done)

	authURL := m.oauth.GetAuthURL(state)
	fmt.Fprintln(m.out, "→ Opening browser for Spotify authorization...")
	if err := m.open(authURL); err != nil {
		m.logger.Warnf("failed to open browser automatically %v", err)
		fmt.Fprintln(m.out, "⚠ Could not open browser automatically.")
		fmt.Fprintf(m.out, "Please open this URL in your browser:\n%s\n\n", authURL)
	}

	var timeout <-chan time.Time
	if m.timeout > 0 {
		timer := time.NewTimer(m.timeout)
		defer timer.Stop()
		timeout = timer.C
		fmt.Fprintf(m.out, "→ Waiting for authorization (%v timeout)...\n", m.timeout)
	} else {
		fmt.Fprintln(m.out, "→ Waiting for authorization...")
	}

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, m.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailure)
	}

	cred := &Credential{
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
		Expiry:       result.Token.Expiry,
	}
	if err := m.store.Save(ctx, cred.RefreshToken); err != nil {
		return nil, err
	}
	m.replace(cred)
	m.logger.Info("authorization complete, refresh token saved")
	return cred, nil
}

// shutdown stops the callback server and returns once the listener is closed and Serve has exited.
//
// Shutdown only closes listeners Serve has already tracked, so ln is closed explicitly as well.
func (m *Manager) shutdown(httpServer *http.Server, ln net.Listener, done <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		m.logger.Warn("error shutting down callback server", "error", err)
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		m.logger.Warn("error closing callback listener", "error", err)
	}
	<-done
}
