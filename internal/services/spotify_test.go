package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/google/go-cmp/cmp"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	}
}

// fakeSpotify serves the accounts token endpoint and a slice of the Web API.
type fakeSpotify struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string][]byte

	tokenStatus int
	tokenBody   string
	tracksBody  string
	addStatus   int
}

func newFakeSpotify() *fakeSpotify {
	return &fakeSpotify{
		bodies:      map[string][]byte{},
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"fresh_access","token_type":"Bearer","expires_in":3600}`,
		tracksBody:  `{"items":[{"track":{"uri":"spotify:track:a"}},{"track":null},{"track":{"uri":"spotify:local:x:y:z:1"}}]}`,
		addStatus:   http.StatusCreated,
	}
}

func (f *fakeSpotify) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		f.bodies[r.Method+" "+r.URL.Path] = body
	}
}

func (f *fakeSpotify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/api/token":
		if id, secret, ok := r.BasicAuth(); !ok || id != "test_client_id" || secret != "test_client_secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	case r.Header.Get("Authorization") != "Bearer access":
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/playlists/src/tracks":
		if r.URL.Query().Get("fields") != "items(track(uri))" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(f.tracksBody))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/users/me123/playlists":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"new1","name":"Weekly 42","public":false,"uri":"spotify:playlist:new1"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/playlists/new1/tracks":
		w.WriteHeader(f.addStatus)
		_, _ = w.Write([]byte(`{"snapshot_id":"snap"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/me":
		_, _ = w.Write([]byte(`{"id":"me123","display_name":"Me"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Not found."}}`))
	}
}

func newTestService(t *testing.T, fake *fakeSpotify) *SpotifyService {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	srv, err := NewSpotifyService(testCredentials(),
		WithEndpoints(ts.URL+"/authorize", ts.URL+"/api/token", ts.URL+"/v1"),
		WithHTTPClient(ts.Client()),
		WithRateLimit(0),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "c"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.GetOAuthConfig().RedirectURL != defaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.GetOAuthConfig().RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "playlist-modify-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL %q should contain %q", authURL, want)
			}
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("returns access token and keeps refresh token", func(t *testing.T) {
			srv := newTestService(t, newFakeSpotify())

			token, err := srv.Refresh(context.Background(), "stored_refresh")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.AccessToken != "fresh_access" {
				t.Errorf("expected fresh_access, got %s", token.AccessToken)
			}
			if token.RefreshToken != "stored_refresh" {
				t.Errorf("expected refresh token to be kept, got %s", token.RefreshToken)
			}
		})

		t.Run("uses rotated refresh token", func(t *testing.T) {
			fake := newFakeSpotify()
			fake.tokenBody = `{"access_token":"fresh_access","token_type":"Bearer","refresh_token":"rotated"}`
			srv := newTestService(t, fake)

			token, err := srv.Refresh(context.Background(), "stored_refresh")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.RefreshToken != "rotated" {
				t.Errorf("expected rotated, got %s", token.RefreshToken)
			}
		})

		t.Run("rejected grant", func(t *testing.T) {
			fake := newFakeSpotify()
			fake.tokenStatus = http.StatusBadRequest
			fake.tokenBody = `{"error":"invalid_grant","error_description":"Refresh token revoked"}`
			srv := newTestService(t, fake)

			_, err := srv.Refresh(context.Background(), "revoked")
			if !errors.Is(err, shared.ErrAuthInvalid) {
				t.Errorf("expected ErrAuthInvalid, got %v", err)
			}
		})

		t.Run("server error is transport", func(t *testing.T) {
			fake := newFakeSpotify()
			fake.tokenStatus = http.StatusBadGateway
			fake.tokenBody = `{}`
			srv := newTestService(t, fake)

			_, err := srv.Refresh(context.Background(), "stored_refresh")
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
		})

		t.Run("empty refresh token", func(t *testing.T) {
			srv := newTestService(t, newFakeSpotify())

			_, err := srv.Refresh(context.Background(), "")
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})
	})

	t.Run("Exchange", func(t *testing.T) {
		fake := newFakeSpotify()
		fake.tokenBody = `{"access_token":"a","token_type":"Bearer","refresh_token":"r"}`
		srv := newTestService(t, fake)

		token, err := srv.Exchange(context.Background(), "code")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.RefreshToken != "r" {
			t.Errorf("expected refresh token r, got %s", token.RefreshToken)
		}
	})

	t.Run("PlaylistTrackURIs", func(t *testing.T) {
		t.Run("skips missing tracks and keeps order", func(t *testing.T) {
			srv := newTestService(t, newFakeSpotify())

			uris, err := srv.PlaylistTrackURIs(context.Background(), "access", "src")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			want := []string{"spotify:track:a", "spotify:local:x:y:z:1"}
			if diff := cmp.Diff(want, uris); diff != "" {
				t.Errorf("uris mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("empty playlist", func(t *testing.T) {
			fake := newFakeSpotify()
			fake.tracksBody = `{"items":[]}`
			srv := newTestService(t, fake)

			uris, err := srv.PlaylistTrackURIs(context.Background(), "access", "src")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(uris) != 0 {
				t.Errorf("expected no uris, got %v", uris)
			}
		})

		t.Run("unknown playlist", func(t *testing.T) {
			srv := newTestService(t, newFakeSpotify())

			_, err := srv.PlaylistTrackURIs(context.Background(), "access", "missing")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), "Not found.") {
				t.Errorf("expected provider message in error, got %v", err)
			}
		})

		t.Run("bad access token", func(t *testing.T) {
			srv := newTestService(t, newFakeSpotify())

			_, err := srv.PlaylistTrackURIs(context.Background(), "stale", "src")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		fake := newFakeSpotify()
		srv := newTestService(t, fake)

		playlist, err := srv.CreatePlaylist(context.Background(), "access", "me123", NewPlaylist{Name: "Weekly 42"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.ID != "new1" {
			t.Errorf("expected id new1, got %s", playlist.ID)
		}

		var body map[string]any
		if err := json.Unmarshal(fake.bodies["POST /v1/users/me123/playlists"], &body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		want := map[string]any{"name": "Weekly 42", "public": false}
		if diff := cmp.Diff(want, body); diff != "" {
			t.Errorf("body mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("AddTracks", func(t *testing.T) {
		t.Run("created", func(t *testing.T) {
			fake := newFakeSpotify()
			srv := newTestService(t, fake)
			uris := []string{"spotify:track:a", "spotify:track:b"}

			result, err := srv.AddTracks(context.Background(), "access", "new1", uris)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.StatusCode != http.StatusCreated || result.SnapshotID != "snap" {
				t.Errorf("unexpected result %+v", result)
			}

			var body struct {
				URIs []string `json:"uris"`
			}
			if err := json.Unmarshal(fake.bodies["POST /v1/playlists/new1/tracks"], &body); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}
			if diff := cmp.Diff(uris, body.URIs); diff != "" {
				t.Errorf("uris mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("reports non-created status", func(t *testing.T) {
			fake := newFakeSpotify()
			fake.addStatus = http.StatusOK
			srv := newTestService(t, fake)

			result, err := srv.AddTracks(context.Background(), "access", "new1", []string{"spotify:track:a"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", result.StatusCode)
			}
		})

		t.Run("rejected", func(t *testing.T) {
			fake := newFakeSpotify()
			fake.addStatus = http.StatusForbidden
			srv := newTestService(t, fake)

			result, err := srv.AddTracks(context.Background(), "access", "new1", []string{"spotify:track:a"})
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if result == nil || result.StatusCode != http.StatusForbidden {
				t.Errorf("expected status 403 in result, got %+v", result)
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		srv := newTestService(t, newFakeSpotify())

		user, err := srv.CurrentUser(context.Background(), "access")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "me123" {
			t.Errorf("expected me123, got %s", user.ID)
		}
	})

	t.Run("Empty Access Token", func(t *testing.T) {
		srv := newTestService(t, newFakeSpotify())

		_, err := srv.PlaylistTrackURIs(context.Background(), "", "src")
		if !errors.Is(err, shared.ErrAuthFailure) {
			t.Errorf("expected ErrAuthFailure, got %v", err)
		}
	})

	t.Run("Service Interfaces", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ PlaylistService = srv
		var _ OAuthService = srv
	})
}
