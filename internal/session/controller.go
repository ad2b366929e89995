package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain/interfaces"
)

// Controller owns the session state machine. It is the sole mutator of
// the in-memory session and the token store; every other component asks
// it for a valid access token through EnsureValidSession.
//
// At most one refresh is in flight at a time: concurrent callers join
// the in-flight refresh instead of starting a second one, because
// refreshing the same refresh token twice can invalidate one of the
// resulting token pairs.
type Controller struct {
	auth        interfaces.AuthGateway
	store       interfaces.TokenStore
	refreshSkew time.Duration
	logger      zerolog.Logger

	mu         sync.RWMutex
	state      domain.SessionState
	session    *domain.Session
	generation uint64

	refreshGroup singleflight.Group
}

func NewController(auth interfaces.AuthGateway, store interfaces.TokenStore, refreshSkew time.Duration, logger zerolog.Logger) *Controller {
	return &Controller{
		auth:        auth,
		store:       store,
		refreshSkew: refreshSkew,
		state:       domain.SessionStateInitializing,
		logger:      logger,
	}
}

// Initialize restores the persisted session, verifying the stored token
// against the auth gateway. Runs once at startup.
//
// When the profile fetch fails transiently (network, 5xx) the stored
// session is kept optimistically: the user stays signed in with the
// unverified token and the first authenticated request settles the
// question. An auth failure attempts a refresh and clears everything if
// that also fails.
func (c *Controller) Initialize(ctx context.Context) error {
	persisted, err := c.store.Load()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load persisted session")
	}

	if !persisted.Valid() {
		if persisted != nil {
			// Partial state (token without user or vice versa) is not
			// trusted; require a fresh login.
			c.logger.Info().Msg("Discarding partial persisted session")
		}
		_ = c.store.Clear()
		c.setUnauthenticated()
		return nil
	}

	response, err := c.auth.Profile(ctx, persisted.AccessToken)
	if err == nil && response.Success && response.User != nil {
		c.adopt(&domain.Session{
			User:         *response.User,
			AccessToken:  persisted.AccessToken,
			RefreshToken: persisted.RefreshToken,
		}, false)
		c.logger.Info().Str("user_id", response.User.ID).Msg("Session restored")
		return nil
	}

	if err != nil && domain.IsTransient(err) {
		c.adopt(&domain.Session{
			User:         *persisted.User,
			AccessToken:  persisted.AccessToken,
			RefreshToken: persisted.RefreshToken,
		}, false)
		c.logger.Warn().Err(err).Msg("Auth gateway unreachable, keeping stored session unverified")
		return nil
	}

	// Stored token rejected. Try the refresh token if there is one.
	if persisted.RefreshToken != "" {
		c.mu.Lock()
		c.session = &domain.Session{
			User:         *persisted.User,
			AccessToken:  persisted.AccessToken,
			RefreshToken: persisted.RefreshToken,
		}
		c.mu.Unlock()

		if _, err := c.refreshShared(ctx); err == nil {
			c.logger.Info().Msg("Session restored via token refresh")
			return nil
		}
		// refreshShared already cleared state on failure.
		return nil
	}

	_ = c.store.Clear()
	c.setUnauthenticated()
	return nil
}

// Login replaces the session wholesale on success. On failure the
// current session, whatever it is, is left untouched.
func (c *Controller) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	response, err := c.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if !response.Success || response.User == nil || response.AccessToken == "" {
		return nil, &domain.AuthError{Message: responseMessage(response, "login failed")}
	}

	session := &domain.Session{
		User:         *response.User,
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
	}
	c.adopt(session, true)

	c.logger.Info().Str("user_id", session.User.ID).Msg("User logged in")
	return session, nil
}

// Signup registers a new account. When the gateway returns tokens the
// session activates exactly like login; otherwise the account needs
// manual login (e.g. email verification pending) and the returned
// session is nil.
func (c *Controller) Signup(ctx context.Context, email, password, fullName string) (*domain.Session, string, error) {
	var metadata json.RawMessage
	if fullName != "" {
		metadata, _ = json.Marshal(map[string]string{"full_name": fullName})
	}

	response, err := c.auth.Signup(ctx, email, password, metadata)
	if err != nil {
		return nil, "", err
	}

	if !response.Success || response.User == nil {
		return nil, "", &domain.AuthError{Message: responseMessage(response, "signup failed")}
	}

	if response.AccessToken == "" {
		c.logger.Info().Str("email", email).Msg("Signup accepted, manual login required")
		return nil, responseMessage(response, "verification required"), nil
	}

	session := &domain.Session{
		User:         *response.User,
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
	}
	c.adopt(session, true)

	c.logger.Info().Str("user_id", session.User.ID).Msg("User signed up")
	return session, "", nil
}

// Logout tears the session down locally first; the gateway notification
// is fire-and-forget and cannot reverse the logout. Any refresh still in
// flight is discarded when it lands.
func (c *Controller) Logout() {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.session = nil
	c.state = domain.SessionStateUnauthenticated
	c.generation++
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear persisted session")
	}

	if token != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.auth.Logout(ctx, token); err != nil {
				c.logger.Debug().Err(err).Msg("Logout notification failed")
			}
		}()
	}

	c.logger.Info().Msg("User logged out")
}

// EnsureValidSession returns an access token good for an authenticated
// request, refreshing first when the token is expired or about to
// expire. Callers arriving during a refresh wait for that refresh.
func (c *Controller) EnsureValidSession(ctx context.Context) (string, error) {
	c.mu.RLock()
	state := c.state
	var token, refreshToken string
	if c.session != nil {
		token = c.session.AccessToken
		refreshToken = c.session.RefreshToken
	}
	c.mu.RUnlock()

	switch state {
	case domain.SessionStateAuthenticated:
		if refreshToken != "" && tokenExpiringSoon(token, c.refreshSkew) {
			return c.refreshShared(ctx)
		}
		return token, nil
	case domain.SessionStateRefreshing:
		return c.refreshShared(ctx)
	default:
		return "", domain.ErrAuthRequired
	}
}

// Refresh forces a token refresh, joining any refresh already in flight.
func (c *Controller) Refresh(ctx context.Context) error {
	_, err := c.refreshShared(ctx)
	return err
}

// refreshShared funnels all refresh demand through one in-flight call.
func (c *Controller) refreshShared(ctx context.Context) (string, error) {
	result, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Controller) doRefresh(ctx context.Context) (interface{}, error) {
	c.mu.Lock()
	if c.session == nil || c.session.RefreshToken == "" {
		c.mu.Unlock()
		return nil, domain.ErrAuthRequired
	}
	refreshToken := c.session.RefreshToken
	generation := c.generation
	c.state = domain.SessionStateRefreshing
	c.mu.Unlock()

	response, err := c.auth.Refresh(ctx, refreshToken)
	if err != nil || !response.Success || response.AccessToken == "" {
		if err == nil {
			err = &domain.AuthError{Message: responseMessage(response, "refresh rejected")}
		}
		c.logger.Warn().Err(err).Msg("Token refresh failed, clearing session")
		c.forceLogout(generation)
		return nil, fmt.Errorf("session refresh failed: %w", err)
	}

	c.mu.Lock()
	if c.generation != generation || c.session == nil {
		// Logged out while the refresh was in flight; the fresh tokens
		// must not resurrect the session.
		c.mu.Unlock()
		return nil, domain.ErrAuthRequired
	}

	c.session.AccessToken = response.AccessToken
	if response.RefreshToken != "" {
		c.session.RefreshToken = response.RefreshToken
	}
	if response.User != nil {
		c.session.User = *response.User
	}
	c.state = domain.SessionStateAuthenticated
	updated := *c.session
	c.mu.Unlock()

	if err := c.store.Save(&updated); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist refreshed session")
	}

	c.logger.Info().Msg("Access token refreshed")
	return updated.AccessToken, nil
}

// forceLogout clears the session after an unrecoverable refresh failure,
// unless a logout already superseded this refresh.
func (c *Controller) forceLogout(generation uint64) {
	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.state = domain.SessionStateUnauthenticated
	c.generation++
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear persisted session")
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() domain.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentSession returns a copy of the live session, or nil.
func (c *Controller) CurrentSession() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

func (c *Controller) adopt(session *domain.Session, persist bool) {
	c.mu.Lock()
	c.session = session
	c.state = domain.SessionStateAuthenticated
	c.mu.Unlock()

	if persist {
		if err := c.store.Save(session); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to persist session")
		}
	}
}

func (c *Controller) setUnauthenticated() {
	c.mu.Lock()
	c.session = nil
	c.state = domain.SessionStateUnauthenticated
	c.mu.Unlock()
}

// tokenExpiringSoon decodes the access token as a JWT without verifying
// the signature and checks the exp claim against the skew window. Opaque
// tokens never report expiry; their rejection is handled reactively.
func tokenExpiringSoon(token string, skew time.Duration) bool {
	parser := &jwt.Parser{}
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}

	return time.Now().Add(skew).Unix() >= int64(exp)
}

func responseMessage(response *domain.AuthResponse, fallback string) string {
	if response != nil && response.Message != "" {
		return response.Message
	}
	return fallback
}
