package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/reconcile"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/server/websocket"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/session"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

type stubAuth struct {
	loginFn func(email, password string) (*domain.AuthResponse, error)
}

func (s *stubAuth) Login(_ context.Context, email, password string) (*domain.AuthResponse, error) {
	if s.loginFn == nil {
		return nil, errors.New("login not stubbed")
	}
	return s.loginFn(email, password)
}

func (s *stubAuth) Signup(context.Context, string, string, json.RawMessage) (*domain.AuthResponse, error) {
	return nil, errors.New("signup not stubbed")
}

func (s *stubAuth) Logout(context.Context, string) error { return nil }

func (s *stubAuth) Profile(context.Context, string) (*domain.AuthResponse, error) {
	return nil, errors.New("profile not stubbed")
}

func (s *stubAuth) Refresh(context.Context, string) (*domain.AuthResponse, error) {
	return nil, errors.New("refresh not stubbed")
}

type stubLedger struct{}

func (stubLedger) Balance(context.Context, string) (*domain.BalanceResponse, error) {
	return nil, errors.New("balance not stubbed")
}

func (stubLedger) Credit(context.Context, string, domain.CreditRequest) (*domain.CreditResponse, error) {
	return nil, errors.New("credit not stubbed")
}

func (stubLedger) ManualDeposit(context.Context, string, string) (*domain.CreditResponse, error) {
	return nil, errors.New("manual deposit not stubbed")
}

type stubChain struct{}

func (stubChain) SubmitTransfer(context.Context, string, *big.Int) (string, error) {
	return "", errors.New("submit not stubbed")
}

func (stubChain) AwaitReceipt(context.Context, string) (*domain.Receipt, error) {
	return nil, errors.New("receipt not stubbed")
}

type stubEndpoints struct{}

func (stubEndpoints) ListMine(context.Context, string) (*domain.EndpointsResponse, error) {
	return &domain.EndpointsResponse{Success: true}, nil
}

func (stubEndpoints) Marketplace(context.Context, string) (*domain.MarketplaceResponse, error) {
	return &domain.MarketplaceResponse{Success: true}, nil
}

func (stubEndpoints) Create(context.Context, string, *domain.Endpoint) (*domain.Endpoint, error) {
	return nil, errors.New("create not stubbed")
}

func (stubEndpoints) Update(context.Context, string, string, *domain.Endpoint) (*domain.Endpoint, error) {
	return nil, errors.New("update not stubbed")
}

func (stubEndpoints) Delete(context.Context, string, string) error { return nil }

func newTestRouter(t *testing.T, auth *stubAuth) (*gin.Engine, *session.Controller, *reconcile.Reconciler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	store := session.NewFileStore("", logger)
	sessions := session.NewController(auth, store, 30*time.Second, logger)
	reconciler := reconcile.New(stubLedger{}, stubChain{}, sessions, nil, logger)
	t.Cleanup(reconciler.Close)

	hub := websocket.NewHub(logger)
	go hub.Run()

	router := gin.New()
	h := New(sessions, reconciler, stubEndpoints{}, hub, logger, &config.Config{})
	h.SetupHandlers(router)
	return router, sessions, reconciler
}

func TestLoginRouteSuccess(t *testing.T) {
	auth := &stubAuth{
		loginFn: func(email, password string) (*domain.AuthResponse, error) {
			return &domain.AuthResponse{
				Success:     true,
				User:        &domain.User{ID: "u1", Email: email},
				AccessToken: "t1",
			}, nil
		},
	}
	router, sessions, _ := newTestRouter(t, auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if sessions.State() != domain.SessionStateAuthenticated {
		t.Errorf("session state = %s", sessions.State())
	}
}

func TestLoginRouteInvalidCredentials(t *testing.T) {
	auth := &stubAuth{
		loginFn: func(string, string) (*domain.AuthResponse, error) {
			return nil, &domain.AuthError{StatusCode: 401, Message: "invalid credentials"}
		},
	}
	router, _, _ := newTestRouter(t, auth)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestDepositRouteValidation(t *testing.T) {
	router, _, _ := newTestRouter(t, &stubAuth{})

	w := httptest.NewRecorder()
	body := `{"amount_eth":"-1","to_address":"0x52908400098527886E0F7030069857D2E4169EE7"}`
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/deposits", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a negative amount", w.Code)
	}
}

func TestManualDepositRouteValidation(t *testing.T) {
	router, _, _ := newTestRouter(t, &stubAuth{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/deposits/manual", strings.NewReader(`{"amount_eth":"0"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a zero amount", w.Code)
	}
}

func TestEndpointRoutesRequireSession(t *testing.T) {
	router, _, _ := newTestRouter(t, &stubAuth{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/endpoints", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 while unauthenticated", w.Code)
	}
}

func TestMarketplaceRouteWithSession(t *testing.T) {
	auth := &stubAuth{
		loginFn: func(string, string) (*domain.AuthResponse, error) {
			return &domain.AuthResponse{
				Success:     true,
				User:        &domain.User{ID: "u1", Email: "a@b.com"},
				AccessToken: "t1",
			}, nil
		},
	}
	router, sessions, _ := newTestRouter(t, auth)
	if _, err := sessions.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("seed login: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/marketplace", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", w.Code, w.Body)
	}
}
