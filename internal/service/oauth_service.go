package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/internal/repository"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
)

const (
	stateBytes    = 16
	stateAttempts = 5
	// OAuthStateTTL bounds how long a login URL stays redeemable.
	OAuthStateTTL = 15 * time.Minute
)

// LMSScopes is the fixed permission set requested at login.
var LMSScopes = []string{"core:*:*", "enrollment:orgunit:read", "grades:*:*"}

type oauthStateStore interface {
	Create(ctx context.Context, state *models.OAuthState) error
	FindByState(ctx context.Context, state string) (*models.OAuthState, error)
	Delete(ctx context.Context, id string) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type oauthTokenStore interface {
	Create(ctx context.Context, token *models.OAuthToken) error
	FindLatest(ctx context.Context, userID string, provider models.OAuthProvider) (*models.OAuthToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// OAuthConfig holds the client registration with the LMS authorization server.
type OAuthConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Site         string
	AuthorizeURL string
	TokenURL     string
	// TokenTTL is the local lifetime given to every issued token; the remote expires_in is ignored.
	TokenTTL    time.Duration
	HTTPTimeout time.Duration
}

// OAuthService runs the authorization code flow against the LMS and keeps the resulting tokens.
type OAuthService struct {
	states     oauthStateStore
	tokens     oauthTokenStore
	oauth      *oauth2.Config
	httpClient *http.Client
	cfg        OAuthConfig
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	random     io.Reader
}

// NewOAuthService wires the OAuth flow.
func NewOAuthService(states oauthStateStore, tokens oauthTokenStore, cfg OAuthConfig, metrics *MetricsService, logger *zap.Logger) *OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &OAuthService{
		states: states,
		tokens: tokens,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       LMSScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  resolveAgainst(cfg.Site, cfg.AuthorizeURL),
				TokenURL: resolveAgainst(cfg.Site, cfg.TokenURL),
			},
		},
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		random:     rand.Reader,
	}
}

// BuildLoginURL records a fresh state for userID and returns the authorization URL carrying it.
func (s *OAuthService) BuildLoginURL(ctx context.Context, userID string) (string, error) {
	if !s.cfg.Enabled {
		return "", appErrors.Clone(appErrors.ErrLMSDisabled, "")
	}
	if userID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "user id required")
	}

	for attempt := 1; attempt <= stateAttempts; attempt++ {
		state, err := s.newState()
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrStateGenerationFailed.Code, appErrors.ErrStateGenerationFailed.Status, "failed to read random state")
		}
		err = s.states.Create(ctx, &models.OAuthState{State: state, UserID: userID})
		if err == nil {
			return s.oauth.AuthCodeURL(state), nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store oauth state")
		}
		s.logger.Sugar().Warnw("oauth state collision", "attempt", attempt)
	}
	return "", appErrors.Clone(appErrors.ErrStateGenerationFailed, "")
}

// HandleCallback redeems the authorization code for the user who requested state. The state row
// is consumed whatever the exchange outcome.
func (s *OAuthService) HandleCallback(ctx context.Context, code, state string) error {
	if !s.cfg.Enabled {
		return appErrors.Clone(appErrors.ErrLMSDisabled, "")
	}
	if state == "" {
		s.metrics.ObserveOAuthCallback("invalid_state")
		return appErrors.Clone(appErrors.ErrInvalidOAuthState, "")
	}

	pending, err := s.states.FindByState(ctx, state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObserveOAuthCallback("invalid_state")
			return appErrors.Clone(appErrors.ErrInvalidOAuthState, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load oauth state")
	}
	defer func() {
		if err := s.states.Delete(context.WithoutCancel(ctx), pending.ID); err != nil {
			s.logger.Sugar().Warnw("failed to delete oauth state", "state_id", pending.ID, "error", err)
		}
	}()

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	issued, err := s.oauth.Exchange(exchangeCtx, code)
	if err != nil {
		s.metrics.ObserveOAuthCallback("exchange_failed")
		s.logger.Sugar().Warnw("oauth code exchange failed", "user_id", pending.UserID, "error", err)
		return appErrors.Wrap(err, appErrors.ErrTokenExchangeFailed.Code, appErrors.ErrTokenExchangeFailed.Status, appErrors.ErrTokenExchangeFailed.Message)
	}

	token := &models.OAuthToken{
		UserID:    pending.UserID,
		Provider:  models.ProviderD2L,
		Token:     issued.AccessToken,
		ExpiresAt: s.now().UTC().Add(s.cfg.TokenTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store oauth token")
	}
	s.metrics.ObserveOAuthCallback("success")
	s.logger.Sugar().Infow("lms token stored", "user_id", pending.UserID, "expires_at", token.ExpiresAt)
	return nil
}

// LatestToken returns the user's most recent token, or nil when none was ever issued.
func (s *OAuthService) LatestToken(ctx context.Context, userID string) (*models.OAuthToken, error) {
	token, err := s.tokens.FindLatest(ctx, userID, models.ProviderD2L)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lms token")
	}
	return token, nil
}

// AccessTokenFor returns an http.Client authorised with the user's current token. A nil client
// and nil error mean the user holds no usable token.
func (s *OAuthService) AccessTokenFor(ctx context.Context, userID string) (*http.Client, error) {
	token, err := s.LatestToken(ctx, userID)
	if err != nil || token == nil {
		return nil, err
	}
	if !token.LiveFor(s.now(), 0) {
		return nil, nil
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Token, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient), source)
	client.Timeout = s.cfg.HTTPTimeout
	return client, nil
}

// SweepExpired removes stale states and expired tokens.
func (s *OAuthService) SweepExpired(ctx context.Context, now time.Time) (states int64, tokens int64, err error) {
	states, err = s.states.DeleteCreatedBefore(ctx, now.Add(-OAuthStateTTL))
	if err != nil {
		return 0, 0, fmt.Errorf("sweep oauth states: %w", err)
	}
	tokens, err = s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return states, 0, fmt.Errorf("sweep oauth tokens: %w", err)
	}
	return states, tokens, nil
}

// StartCleanup runs SweepExpired on interval until ctx is cancelled.
func (s *OAuthService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				states, tokens, err := s.SweepExpired(ctx, s.now().UTC())
				if err != nil {
					s.logger.Sugar().Warnw("oauth cleanup failed", "error", err)
					continue
				}
				if states > 0 || tokens > 0 {
					s.logger.Sugar().Infow("oauth cleanup", "states", states, "tokens", tokens)
				}
			}
		}
	}()
}

func (s *OAuthService) newState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// resolveAgainst turns a site-relative endpoint into an absolute URL.
func resolveAgainst(site, endpoint string) string {
	if site == "" || endpoint == "" {
		return endpoint
	}
	ref, err := url.Parse(endpoint)
	if err != nil || ref.IsAbs() {
		return endpoint
	}
	base, err := url.Parse(site)
	if err != nil {
		return endpoint
	}
	return base.ResolveReference(ref).String()
}
