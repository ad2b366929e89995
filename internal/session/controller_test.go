package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
)

type fakeAuth struct {
	loginFn   func(email, password string) (*domain.AuthResponse, error)
	signupFn  func(email, password string) (*domain.AuthResponse, error)
	profileFn func(token string) (*domain.AuthResponse, error)
	refreshFn func(token string) (*domain.AuthResponse, error)

	refreshCalls int32
	logoutCalls  int32
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*domain.AuthResponse, error) {
	if f.loginFn == nil {
		return nil, errors.New("login not stubbed")
	}
	return f.loginFn(email, password)
}

func (f *fakeAuth) Signup(_ context.Context, email, password string, _ json.RawMessage) (*domain.AuthResponse, error) {
	if f.signupFn == nil {
		return nil, errors.New("signup not stubbed")
	}
	return f.signupFn(email, password)
}

func (f *fakeAuth) Logout(_ context.Context, _ string) error {
	atomic.AddInt32(&f.logoutCalls, 1)
	return nil
}

func (f *fakeAuth) Profile(_ context.Context, token string) (*domain.AuthResponse, error) {
	if f.profileFn == nil {
		return nil, errors.New("profile not stubbed")
	}
	return f.profileFn(token)
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*domain.AuthResponse, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.refreshFn == nil {
		return nil, errors.New("refresh not stubbed")
	}
	return f.refreshFn(token)
}

func okLogin(accessToken, refreshToken string) func(string, string) (*domain.AuthResponse, error) {
	return func(string, string) (*domain.AuthResponse, error) {
		return &domain.AuthResponse{
			Success:      true,
			User:         &domain.User{ID: "u1", Email: "a@b.com"},
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		}, nil
	}
}

// expiredJWT builds a decodable token whose exp claim is in the past,
// which makes the controller refresh before using it.
func expiredJWT(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to build test token: %v", err)
	}
	return signed
}

func newTestController(t *testing.T, auth *fakeAuth) (*Controller, *FileStore) {
	t.Helper()
	store := NewFileStore(t.TempDir(), zerolog.Nop())
	return NewController(auth, store, 30*time.Second, zerolog.Nop()), store
}

func TestLoginThenLogoutLeavesNothing(t *testing.T) {
	auth := &fakeAuth{loginFn: okLogin("t1", "r1")}
	controller, store := newTestController(t, auth)

	if _, err := controller.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if controller.State() != domain.SessionStateAuthenticated {
		t.Fatalf("state after login = %s", controller.State())
	}
	persisted, _ := store.Load()
	if !persisted.Valid() {
		t.Fatal("expected session to be persisted after login")
	}

	controller.Logout()

	if controller.State() != domain.SessionStateUnauthenticated {
		t.Errorf("state after logout = %s", controller.State())
	}
	if controller.CurrentSession() != nil {
		t.Error("session must be nil after logout")
	}
	persisted, _ = store.Load()
	if persisted != nil {
		t.Errorf("persisted session must be empty after logout, got %+v", persisted)
	}
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	auth := &fakeAuth{loginFn: okLogin("t1", "r1")}
	controller, _ := newTestController(t, auth)

	if _, err := controller.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	auth.loginFn = func(string, string) (*domain.AuthResponse, error) {
		return nil, &domain.AuthError{StatusCode: 401, Message: "bad credentials"}
	}
	if _, err := controller.Login(context.Background(), "a@b.com", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}

	if controller.State() != domain.SessionStateAuthenticated {
		t.Errorf("failed login must not destroy the existing session, state = %s", controller.State())
	}
	if sess := controller.CurrentSession(); sess == nil || sess.AccessToken != "t1" {
		t.Errorf("existing session changed: %+v", sess)
	}
}

func TestConcurrentEnsureTriggersSingleRefresh(t *testing.T) {
	release := make(chan struct{})
	auth := &fakeAuth{
		loginFn: okLogin(expiredJWT(t), "r1"),
		refreshFn: func(refreshToken string) (*domain.AuthResponse, error) {
			if refreshToken != "r1" {
				t.Errorf("refresh called with %q, want r1", refreshToken)
			}
			<-release
			return &domain.AuthResponse{Success: true, AccessToken: "t2"}, nil
		},
	}
	controller, _ := newTestController(t, auth)

	if _, err := controller.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	const n = 8
	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = controller.EnsureValidSession(context.Background())
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls := atomic.LoadInt32(&auth.refreshCalls); calls != 1 {
		t.Errorf("refresh network calls = %d, want exactly 1", calls)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: %v", i, errs[i])
		}
		if tokens[i] != "t2" {
			t.Errorf("caller %d got token %q, want t2", i, tokens[i])
		}
	}
}

func TestRefreshReplacesAccessTokenOnly(t *testing.T) {
	auth := &fakeAuth{
		loginFn: okLogin("t1", "r1"),
		refreshFn: func(string) (*domain.AuthResponse, error) {
			return &domain.AuthResponse{Success: true, AccessToken: "t2"}, nil
		},
	}
	controller, store := newTestController(t, auth)

	if _, err := controller.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := controller.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	sess := controller.CurrentSession()
	if sess == nil {
		t.Fatal("session missing after refresh")
	}
	if sess.AccessToken != "t2" {
		t.Errorf("access token = %q, want t2", sess.AccessToken)
	}
	if sess.RefreshToken != "r1" {
		t.Errorf("refresh token = %q, want r1 (response omitted it)", sess.RefreshToken)
	}
	if sess.User.ID != "u1" {
		t.Errorf("user = %+v, want u1 preserved", sess.User)
	}
	if controller.State() != domain.SessionStateAuthenticated {
		t.Errorf("state = %s", controller.State())
	}

	persisted, _ := store.Load()
	if persisted == nil || persisted.AccessToken != "t2" || persisted.RefreshToken != "r1" {
		t.Errorf("persisted session not updated: %+v", persisted)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	auth := &fakeAuth{
		loginFn: okLogin("t1", "r1"),
		refreshFn: func(string) (*domain.AuthResponse, error) {
			return nil, &domain.AuthError{StatusCode: 401, Message: "refresh token revoked"}
		},
	}
	controller, store := newTestController(t, auth)

	if _, err := controller.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := controller.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}

	if controller.State() != domain.SessionStateUnauthenticated {
		t.Errorf("state = %s, want unauthenticated after failed refresh", controller.State())
	}
	if _, err := controller.EnsureValidSession(context.Background()); !errors.Is(err, domain.ErrAuthRequired) {
		t.Errorf("ensure after forced logout = %v, want ErrAuthRequired", err)
	}
	if persisted, _ := store.Load(); persisted != nil {
		t.Errorf("persisted session must be cleared, got %+v", persisted)
	}
}

func TestLogoutDuringRefreshDiscardsResult(t *testing.T) {
	inRefresh := make(chan struct{})
	release := make(chan struct{})
	auth := &fakeAuth{
		loginFn: okLogin("t1", "r1"),
		refreshFn: func(string) (*domain.AuthResponse, error) {
			close(inRefresh)
			<-release
			return &domain.AuthResponse{Success: true, AccessToken: "t2", RefreshToken: "r2"}, nil
		},
	}
	controller, store := newTestController(t, auth)

	if _, err := controller.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- controller.Refresh(context.Background())
	}()

	<-inRefresh
	controller.Logout()
	close(release)

	if err := <-done; !errors.Is(err, domain.ErrAuthRequired) {
		t.Errorf("refresh completed with %v, want ErrAuthRequired after logout", err)
	}
	if controller.State() != domain.SessionStateUnauthenticated {
		t.Errorf("state = %s, the late refresh must not resurrect the session", controller.State())
	}
	if controller.CurrentSession() != nil {
		t.Error("session resurrected by a refresh that finished after logout")
	}
	if persisted, _ := store.Load(); persisted != nil {
		t.Errorf("persisted session resurrected: %+v", persisted)
	}
}

func TestInitializeRestoresPersistedSession(t *testing.T) {
	auth := &fakeAuth{
		profileFn: func(token string) (*domain.AuthResponse, error) {
			if token != "t1" {
				t.Errorf("profile called with %q, want t1", token)
			}
			return &domain.AuthResponse{Success: true, User: &domain.User{ID: "u1", Email: "a@b.com"}}, nil
		},
	}
	store := NewFileStore(t.TempDir(), zerolog.Nop())
	store.Save(&domain.Session{
		User:         domain.User{ID: "u1", Email: "a@b.com"},
		AccessToken:  "t1",
		RefreshToken: "r1",
	})

	controller := NewController(auth, store, 30*time.Second, zerolog.Nop())
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if controller.State() != domain.SessionStateAuthenticated {
		t.Fatalf("state = %s", controller.State())
	}
	sess := controller.CurrentSession()
	if sess.AccessToken != "t1" || sess.RefreshToken != "r1" || sess.User.ID != "u1" {
		t.Errorf("restored session = %+v", sess)
	}
}

func TestInitializeKeepsSessionOnTransientError(t *testing.T) {
	auth := &fakeAuth{
		profileFn: func(string) (*domain.AuthResponse, error) {
			return nil, &domain.TransientError{Message: "gateway unreachable"}
		},
	}
	store := NewFileStore(t.TempDir(), zerolog.Nop())
	store.Save(&domain.Session{
		User:        domain.User{ID: "u1", Email: "a@b.com"},
		AccessToken: "t1",
	})

	controller := NewController(auth, store, 30*time.Second, zerolog.Nop())
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Optimistic policy: the stored session stays usable while the
	// gateway is unreachable.
	if controller.State() != domain.SessionStateAuthenticated {
		t.Errorf("state = %s, want authenticated (optimistic)", controller.State())
	}
	if sess := controller.CurrentSession(); sess == nil || sess.AccessToken != "t1" {
		t.Errorf("stored session not kept: %+v", sess)
	}
}

func TestInitializeExpiredTokenRefreshes(t *testing.T) {
	auth := &fakeAuth{
		profileFn: func(string) (*domain.AuthResponse, error) {
			return nil, &domain.AuthError{StatusCode: 401, Message: "token expired"}
		},
		refreshFn: func(refreshToken string) (*domain.AuthResponse, error) {
			if refreshToken != "r1" {
				t.Errorf("refresh called with %q, want r1", refreshToken)
			}
			return &domain.AuthResponse{Success: true, AccessToken: "t2"}, nil
		},
	}
	store := NewFileStore(t.TempDir(), zerolog.Nop())
	store.Save(&domain.Session{
		User:         domain.User{ID: "u1", Email: "a@b.com"},
		AccessToken:  "t1",
		RefreshToken: "r1",
	})

	controller := NewController(auth, store, 30*time.Second, zerolog.Nop())
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if controller.State() != domain.SessionStateAuthenticated {
		t.Fatalf("state = %s", controller.State())
	}
	if sess := controller.CurrentSession(); sess.AccessToken != "t2" {
		t.Errorf("access token = %q, want t2 from refresh", sess.AccessToken)
	}
}

func TestInitializeExpiredTokenWithoutRefreshTokenClears(t *testing.T) {
	auth := &fakeAuth{
		profileFn: func(string) (*domain.AuthResponse, error) {
			return nil, &domain.AuthError{StatusCode: 401, Message: "token expired"}
		},
	}
	store := NewFileStore(t.TempDir(), zerolog.Nop())
	store.Save(&domain.Session{
		User:        domain.User{ID: "u1", Email: "a@b.com"},
		AccessToken: "t1",
	})

	controller := NewController(auth, store, 30*time.Second, zerolog.Nop())
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if controller.State() != domain.SessionStateUnauthenticated {
		t.Errorf("state = %s", controller.State())
	}
	if persisted, _ := store.Load(); persisted != nil {
		t.Errorf("store not cleared: %+v", persisted)
	}
}

func TestInitializePartialStateRequiresLogin(t *testing.T) {
	auth := &fakeAuth{}
	// Seed only a refresh token: not enough to trust.
	dir := t.TempDir()
	store := NewFileStore(dir, zerolog.Nop())
	writeStoreFile(t, dir, refreshTokenKey, "r1")

	controller := NewController(auth, store, 30*time.Second, zerolog.Nop())
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if controller.State() != domain.SessionStateUnauthenticated {
		t.Errorf("state = %s, partial state must force re-authentication", controller.State())
	}
	if persisted, _ := store.Load(); persisted != nil {
		t.Errorf("partial state not cleared: %+v", persisted)
	}
}

func TestEnsureWhileUnauthenticated(t *testing.T) {
	controller, _ := newTestController(t, &fakeAuth{})
	controller.setUnauthenticated()

	if _, err := controller.EnsureValidSession(context.Background()); !errors.Is(err, domain.ErrAuthRequired) {
		t.Errorf("got %v, want ErrAuthRequired", err)
	}
}

func TestSignupWithoutTokensRequiresManualLogin(t *testing.T) {
	auth := &fakeAuth{
		signupFn: func(string, string) (*domain.AuthResponse, error) {
			return &domain.AuthResponse{
				Success: true,
				Message: "check your email to verify your account",
				User:    &domain.User{ID: "u2", Email: "new@b.com"},
			}, nil
		},
	}
	controller, store := newTestController(t, auth)
	controller.setUnauthenticated()

	sess, pending, err := controller.Signup(context.Background(), "new@b.com", "password1", "New User")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess != nil {
		t.Errorf("expected no session without tokens, got %+v", sess)
	}
	if pending == "" {
		t.Error("expected a pending-verification message")
	}
	if controller.State() != domain.SessionStateUnauthenticated {
		t.Errorf("state = %s, want unauthenticated", controller.State())
	}
	if persisted, _ := store.Load(); persisted != nil {
		t.Errorf("nothing should be persisted, got %+v", persisted)
	}
}

func TestSignupWithTokensActivatesSession(t *testing.T) {
	auth := &fakeAuth{
		signupFn: func(string, string) (*domain.AuthResponse, error) {
			return &domain.AuthResponse{
				Success:      true,
				User:         &domain.User{ID: "u2", Email: "new@b.com"},
				AccessToken:  "t1",
				RefreshToken: "r1",
			}, nil
		},
	}
	controller, store := newTestController(t, auth)

	sess, _, err := controller.Signup(context.Background(), "new@b.com", "password1", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess == nil || sess.AccessToken != "t1" {
		t.Fatalf("expected activated session, got %+v", sess)
	}
	if controller.State() != domain.SessionStateAuthenticated {
		t.Errorf("state = %s", controller.State())
	}
	if persisted, _ := store.Load(); !persisted.Valid() {
		t.Error("activated signup session must be persisted")
	}
}

func writeStoreFile(t *testing.T, dir, key, value string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, key), []byte(value), 0o600); err != nil {
		t.Fatal(err)
	}
}
