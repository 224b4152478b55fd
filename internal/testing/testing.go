// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/weekcopy/internal/services"
	"golang.org/x/oauth2"
)

// MockPlaylistService is a test double for [services.PlaylistService] that records every call.
type MockPlaylistService struct {
	mu sync.Mutex

	URIs        []string
	FetchErr    error
	Created     *services.Playlist
	CreateErr   error
	AddStatus   int
	AddErr      error
	Calls       []string
	Tokens      []string
	CreatedWith []services.NewPlaylist
	AddedURIs   [][]string
}

// NewMockPlaylistService returns a mock that serves uris and accepts inserts with 201.
func NewMockPlaylistService(uris ...string) *MockPlaylistService {
	return &MockPlaylistService{
		URIs:      uris,
		Created:   &services.Playlist{ID: "dest", URI: "spotify:playlist:dest"},
		AddStatus: 201,
	}
}

func (m *MockPlaylistService) record(call, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
	m.Tokens = append(m.Tokens, token)
}

func (m *MockPlaylistService) PlaylistTrackURIs(ctx context.Context, accessToken, playlistID string) ([]string, error) {
	m.record("fetch:"+playlistID, accessToken)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return append([]string(nil), m.URIs...), nil
}

func (m *MockPlaylistService) CreatePlaylist(ctx context.Context, accessToken, userID string, playlist services.NewPlaylist) (*services.Playlist, error) {
	m.record("create:"+userID, accessToken)
	m.mu.Lock()
	m.CreatedWith = append(m.CreatedWith, playlist)
	m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	created := *m.Created
	created.Name = playlist.Name
	created.Public = playlist.Public
	return &created, nil
}

func (m *MockPlaylistService) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) (*services.AddTracksResult, error) {
	m.record("add:"+playlistID, accessToken)
	m.mu.Lock()
	m.AddedURIs = append(m.AddedURIs, append([]string(nil), uris...))
	m.mu.Unlock()
	return &services.AddTracksResult{StatusCode: m.AddStatus}, m.AddErr
}

func (m *MockPlaylistService) Name() string { return "mock" }

// CallLog returns a copy of the recorded calls.
func (m *MockPlaylistService) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// MockOAuthService is a test double for [services.OAuthService].
//
// Refresh succeeds only for refresh tokens present in Valid.
type MockOAuthService struct {
	mu sync.Mutex

	Valid        map[string]string
	RefreshErr   error
	ExchangeTok  *oauth2.Token
	ExchangeErr  error
	Refreshes    int
	Exchanges    int
	LastAuthCode string
}

func (m *MockOAuthService) GetAuthURL(state string) string {
	return "https://accounts.example.test/authorize?state=" + state
}

func (m *MockOAuthService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Exchanges++
	m.LastAuthCode = code
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return m.ExchangeTok, nil
}

func (m *MockOAuthService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshes++
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	access, ok := m.Valid[refreshToken]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{AccessToken: access, RefreshToken: refreshToken}, nil
}

// RefreshCount returns how many refresh grants were attempted.
func (m *MockOAuthService) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Refreshes
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// FreeAddr returns a loopback address with a port that was free a moment ago.
func FreeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("Failed to release port: %v", err)
	}
	return addr
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
