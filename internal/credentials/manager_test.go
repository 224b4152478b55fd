package credentials

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekcopy/internal/shared"
	tu "github.com/desertthunder/weekcopy/internal/testing"
	"golang.org/x/oauth2"
)

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

// callbackOpener plays the browser: it follows the consent URL straight to the local callback.
func callbackOpener(t *testing.T, addr, code string) Opener {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			t.Errorf("bad auth url: %v", err)
			return err
		}
		state := u.Query().Get("state")
		go func() {
			resp, err := http.Get("http://" + addr + "/callback?code=" + code + "&state=" + url.QueryEscape(state))
			if err != nil {
				t.Errorf("callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

func TestFileStore(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "refresh_token.txt"))
		token, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "" {
			t.Errorf("expected empty token, got %q", token)
		}
	})

	t.Run("round trip trims whitespace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "refresh_token.txt")
		store := NewFileStore(path)

		if err := store.Save(context.Background(), "  abc\n"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)

		token, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "abc" {
			t.Errorf("expected abc, got %q", token)
		}
	})

	t.Run("overwrites prior content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "refresh_token.txt")
		store := NewFileStore(path)
		_ = store.Save(context.Background(), "first-and-longer")
		_ = store.Save(context.Background(), "second")

		if got := tu.MustReadFile(t, path); got != "second" {
			t.Errorf("expected second, got %q", got)
		}
	})
}

func TestManager(t *testing.T) {
	newManager := func(t *testing.T, oauth *tu.MockOAuthService, opts ...Option) (*Manager, *FileStore) {
		store := NewFileStore(filepath.Join(t.TempDir(), "refresh_token.txt"))
		opts = append([]Option{WithOutput(&bytes.Buffer{})}, opts...)
		return NewManager(oauth, store, quietLogger(), opts...), store
	}

	t.Run("LoadPersistedRefreshToken", func(t *testing.T) {
		m, store := newManager(t, &tu.MockOAuthService{})

		if _, ok := m.LoadPersistedRefreshToken(context.Background()); ok {
			t.Error("expected no token before anything is saved")
		}

		_ = store.Save(context.Background(), "stored\n")
		token, ok := m.LoadPersistedRefreshToken(context.Background())
		if !ok || token != "stored" {
			t.Errorf("expected stored, got %q (%v)", token, ok)
		}
	})

	t.Run("AccessToken", func(t *testing.T) {
		t.Run("valid refresh token", func(t *testing.T) {
			oauth := &tu.MockOAuthService{Valid: map[string]string{"good": "access-1"}}
			m, store := newManager(t, oauth)
			_ = store.Save(context.Background(), "good")

			token, err := m.AccessToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "access-1" {
				t.Errorf("expected access-1, got %s", token)
			}
			if got := tu.MustReadFile(t, store.Path()); got != "good" {
				t.Errorf("expected token file to hold good, got %q", got)
			}
			if c := m.Current(); c == nil || c.AccessToken != "access-1" {
				t.Errorf("expected in-memory credential to be replaced, got %+v", c)
			}
		})

		t.Run("invalid refresh token", func(t *testing.T) {
			oauth := &tu.MockOAuthService{Valid: map[string]string{}}
			m, store := newManager(t, oauth)
			_ = store.Save(context.Background(), "revoked")

			_, err := m.AccessToken(context.Background())
			if !errors.Is(err, shared.ErrAuthFailure) {
				t.Errorf("expected ErrAuthFailure, got %v", err)
			}
			if got := tu.MustReadFile(t, store.Path()); got != "revoked" {
				t.Errorf("token file should be left alone, got %q", got)
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			oauth := &tu.MockOAuthService{RefreshErr: shared.ErrTransport}
			m, store := newManager(t, oauth)
			_ = store.Save(context.Background(), "good")

			_, err := m.AccessToken(context.Background())
			if !errors.Is(err, shared.ErrAuthFailure) || !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrAuthFailure wrapping ErrTransport, got %v", err)
			}
		})

		t.Run("no token file", func(t *testing.T) {
			oauth := &tu.MockOAuthService{}
			m, _ := newManager(t, oauth)

			_, err := m.AccessToken(context.Background())
			if !errors.Is(err, shared.ErrAuthFailure) || !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrAuthFailure wrapping ErrNoRefreshToken, got %v", err)
			}
			if oauth.RefreshCount() != 0 {
				t.Error("refresh should not be attempted without a token")
			}
		})
	})

	t.Run("TryRefresh persists rotated token", func(t *testing.T) {
		oauth := &tu.MockOAuthService{Valid: map[string]string{"old": "access"}}
		m, store := newManager(t, oauth)

		cred, err := m.TryRefresh(context.Background(), "old")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cred.RefreshToken != "old" {
			t.Errorf("expected unchanged refresh token, got %s", cred.RefreshToken)
		}
		if got := tu.MustReadFile(t, store.Path()); got != "old" {
			t.Errorf("expected token file to be written, got %q", got)
		}
	})

	t.Run("Authorize", func(t *testing.T) {
		t.Run("exchanges code and closes listener", func(t *testing.T) {
			addr := tu.FreeAddr(t)
			oauth := &tu.MockOAuthService{ExchangeTok: &oauth2.Token{AccessToken: "a", RefreshToken: "issued"}}
			m, store := newManager(t, oauth, WithCallbackAddr(addr))
			m.open = callbackOpener(t, addr, "the-code")

			cred, err := m.Authorize(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.AccessToken != "a" || cred.RefreshToken != "issued" {
				t.Errorf("unexpected credential %+v", cred)
			}
			if oauth.LastAuthCode != "the-code" {
				t.Errorf("expected the-code to be exchanged, got %q", oauth.LastAuthCode)
			}
			if got := tu.MustReadFile(t, store.Path()); got != "issued" {
				t.Errorf("expected token file to hold issued, got %q", got)
			}

			if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
				conn.Close()
				t.Error("expected callback listener to be closed")
			}
		})

		t.Run("times out", func(t *testing.T) {
			addr := tu.FreeAddr(t)
			m, _ := newManager(t, &tu.MockOAuthService{}, WithCallbackAddr(addr), WithAuthTimeout(50*time.Millisecond))
			m.open = func(string) error { return nil }

			_, err := m.Authorize(context.Background())
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				t.Fatalf("expected address to be free again, got %v", err)
			}
			ln.Close()
		})

		t.Run("repeated cancel always frees the port", func(t *testing.T) {
			addr := tu.FreeAddr(t)
			for i := range 20 {
				m, _ := newManager(t, &tu.MockOAuthService{}, WithCallbackAddr(addr))
				m.open = func(string) error { return nil }
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				if _, err := m.Authorize(ctx); !errors.Is(err, context.Canceled) {
					t.Fatalf("attempt %d: expected context.Canceled, got %v", i, err)
				}
				ln, err := net.Listen("tcp", addr)
				if err != nil {
					t.Fatalf("attempt %d: expected address to be free, got %v", i, err)
				}
				ln.Close()
			}
		})

		t.Run("context cancel tears listener down", func(t *testing.T) {
			addr := tu.FreeAddr(t)
			m, _ := newManager(t, &tu.MockOAuthService{}, WithCallbackAddr(addr))
			ctx, cancel := context.WithCancel(context.Background())
			m.open = func(string) error {
				cancel()
				return nil
			}

			_, err := m.Authorize(ctx)
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				t.Fatalf("expected address to be free again, got %v", err)
			}
			ln.Close()
		})

		t.Run("prints url when browser fails", func(t *testing.T) {
			addr := tu.FreeAddr(t)
			var out bytes.Buffer
			m, _ := newManager(t, &tu.MockOAuthService{}, WithCallbackAddr(addr), WithAuthTimeout(20*time.Millisecond), WithOutput(&out))
			m.open = func(string) error { return errors.New("no display") }

			_, _ = m.Authorize(context.Background())
			if !strings.Contains(out.String(), "https://accounts.example.test/authorize?state=") {
				t.Errorf("expected consent URL in output, got %q", out.String())
			}
		})

		t.Run("port in use", func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatal(err)
			}
			defer ln.Close()

			m, _ := newManager(t, &tu.MockOAuthService{}, WithCallbackAddr(ln.Addr().String()))
			if _, err := m.Authorize(context.Background()); err == nil {
				t.Error("expected listen error")
			}
		})
	})

	t.Run("Ensure", func(t *testing.T) {
		t.Run("silent refresh", func(t *testing.T) {
			oauth := &tu.MockOAuthService{Valid: map[string]string{"good": "access"}}
			m, store := newManager(t, oauth, WithCallbackAddr(tu.FreeAddr(t)))
			m.open = func(string) error {
				t.Error("browser should not be opened")
				return nil
			}
			_ = store.Save(context.Background(), "good")

			cred, err := m.Ensure(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.AccessToken != "access" {
				t.Errorf("expected access, got %s", cred.AccessToken)
			}
		})

		t.Run("falls back to interactive", func(t *testing.T) {
			addr := tu.FreeAddr(t)
			oauth := &tu.MockOAuthService{
				Valid:       map[string]string{},
				ExchangeTok: &oauth2.Token{AccessToken: "new-access", RefreshToken: "new-refresh"},
			}
			m, store := newManager(t, oauth, WithCallbackAddr(addr))
			m.open = callbackOpener(t, addr, "code")
			_ = store.Save(context.Background(), "revoked")

			cred, err := m.Ensure(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.RefreshToken != "new-refresh" {
				t.Errorf("expected new-refresh, got %s", cred.RefreshToken)
			}
			if got := tu.MustReadFile(t, store.Path()); got != "new-refresh" {
				t.Errorf("expected token file to be replaced, got %q", got)
			}
		})
	})
}
