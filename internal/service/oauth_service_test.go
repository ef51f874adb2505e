package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/internal/repository"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
)

type oauthStateStoreStub struct {
	states     map[string]*models.OAuthState
	duplicates int
	createErr  error
	deleted    []string
	cutoff     time.Time
}

func newOAuthStateStoreStub() *oauthStateStoreStub {
	return &oauthStateStoreStub{states: map[string]*models.OAuthState{}}
}

func (s *oauthStateStoreStub) Create(ctx context.Context, state *models.OAuthState) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.duplicates > 0 {
		s.duplicates--
		return repository.ErrDuplicate
	}
	state.ID = "state-" + state.State[:6]
	state.CreatedAt = time.Now()
	s.states[state.State] = state
	return nil
}

func (s *oauthStateStoreStub) FindByState(ctx context.Context, state string) (*models.OAuthState, error) {
	st, ok := s.states[state]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func (s *oauthStateStoreStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	for key, st := range s.states {
		if st.ID == id {
			delete(s.states, key)
		}
	}
	return nil
}

func (s *oauthStateStoreStub) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 2, nil
}

type oauthTokenStoreStub struct {
	tokens   []*models.OAuthToken
	findErr  error
	sweptAt  time.Time
	sweepErr error
}

func (s *oauthTokenStoreStub) Create(ctx context.Context, token *models.OAuthToken) error {
	token.ID = "token-1"
	s.tokens = append(s.tokens, token)
	return nil
}

func (s *oauthTokenStoreStub) FindLatest(ctx context.Context, userID string, provider models.OAuthProvider) (*models.OAuthToken, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.tokens) - 1; i >= 0; i-- {
		if s.tokens[i].UserID == userID && s.tokens[i].Provider == provider {
			return s.tokens[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *oauthTokenStoreStub) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.sweptAt = now
	return 1, s.sweepErr
}

func newTestOAuthService(t *testing.T, tokenURL string) (*OAuthService, *oauthStateStoreStub, *oauthTokenStoreStub) {
	t.Helper()
	states := newOAuthStateStoreStub()
	tokens := &oauthTokenStoreStub{}
	svc := NewOAuthService(states, tokens, OAuthConfig{
		Enabled:      true,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://assessments.example.edu/api/v1/lms/callback",
		Site:         "https://auth.example.edu",
		AuthorizeURL: "/oauth2/auth",
		TokenURL:     tokenURL,
		TokenTTL:     30 * time.Minute,
	}, nil, nil)
	return svc, states, tokens
}

func TestOAuthServiceBuildLoginURL(t *testing.T) {
	svc, states, _ := newTestOAuthService(t, "https://auth.example.edu/core/connect/token")

	raw, err := svc.BuildLoginURL(context.Background(), "user-1")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "auth.example.edu", parsed.Host)
	assert.Equal(t, "/oauth2/auth", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "core:*:* enrollment:orgunit:read grades:*:*", q.Get("scope"))
	assert.Equal(t, "https://assessments.example.edu/api/v1/lms/callback", q.Get("redirect_uri"))

	state := q.Get("state")
	assert.Len(t, state, 32)
	require.Contains(t, states.states, state)
	assert.Equal(t, "user-1", states.states[state].UserID)
}

func TestOAuthServiceBuildLoginURLRetriesCollisions(t *testing.T) {
	svc, states, _ := newTestOAuthService(t, "https://auth.example.edu/token")
	states.duplicates = 4

	_, err := svc.BuildLoginURL(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, states.states, 1)
}

func TestOAuthServiceBuildLoginURLGivesUpAfterFiveCollisions(t *testing.T) {
	svc, states, _ := newTestOAuthService(t, "https://auth.example.edu/token")
	states.duplicates = 5

	_, err := svc.BuildLoginURL(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStateGenerationFailed))
}

func TestOAuthServiceBuildLoginURLStoreFailure(t *testing.T) {
	svc, states, _ := newTestOAuthService(t, "https://auth.example.edu/token")
	states.createErr = errors.New("db down")

	_, err := svc.BuildLoginURL(context.Background(), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestOAuthServiceBuildLoginURLDisabled(t *testing.T) {
	svc := NewOAuthService(newOAuthStateStoreStub(), &oauthTokenStoreStub{}, OAuthConfig{}, nil, nil)
	_, err := svc.BuildLoginURL(context.Background(), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrLMSDisabled))
}

func TestOAuthServiceNewStateIsHex(t *testing.T) {
	svc, _, _ := newTestOAuthService(t, "https://auth.example.edu/token")
	svc.random = bytes.NewReader(bytes.Repeat([]byte{0xab}, 16))

	state, err := svc.newState()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", 16), state)
}

func TestOAuthServiceHandleCallbackStoresToken(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"remote-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	svc, states, tokens := newTestOAuthService(t, server.URL+"/core/connect/token")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	states.states["abc123abc123"] = &models.OAuthState{ID: "state-1", State: "abc123abc123", UserID: "user-1"}

	err := svc.HandleCallback(context.Background(), "the-code", "abc123abc123")
	require.NoError(t, err)

	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Len(t, tokens.tokens, 1)
	stored := tokens.tokens[0]
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, models.ProviderD2L, stored.Provider)
	assert.Equal(t, "remote-token", stored.Token)
	assert.Equal(t, now.Add(30*time.Minute), stored.ExpiresAt)
	assert.Equal(t, []string{"state-1"}, states.deleted)
}

func TestOAuthServiceHandleCallbackUnknownState(t *testing.T) {
	svc, states, tokens := newTestOAuthService(t, "https://auth.example.edu/token")

	err := svc.HandleCallback(context.Background(), "code", "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidOAuthState))
	assert.Empty(t, tokens.tokens)
	assert.Empty(t, states.deleted)
}

func TestOAuthServiceHandleCallbackExchangeFailureConsumesState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	svc, states, tokens := newTestOAuthService(t, server.URL)
	states.states["s1s1s1s1"] = &models.OAuthState{ID: "state-1", State: "s1s1s1s1", UserID: "user-1"}

	err := svc.HandleCallback(context.Background(), "bad-code", "s1s1s1s1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExchangeFailed))
	assert.NotNil(t, errors.Unwrap(err))
	assert.Empty(t, tokens.tokens)
	assert.Equal(t, []string{"state-1"}, states.deleted)
}

func TestOAuthServiceLatestTokenNone(t *testing.T) {
	svc, _, _ := newTestOAuthService(t, "https://auth.example.edu/token")

	token, err := svc.LatestToken(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestOAuthServiceAccessTokenFor(t *testing.T) {
	var authHeader string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	svc, _, tokens := newTestOAuthService(t, "https://auth.example.edu/token")
	now := time.Now()
	svc.now = func() time.Time { return now }
	tokens.tokens = []*models.OAuthToken{
		{UserID: "user-1", Provider: models.ProviderD2L, Token: "old", ExpiresAt: now.Add(5 * time.Minute)},
		{UserID: "user-1", Provider: models.ProviderD2L, Token: "new", ExpiresAt: now.Add(25 * time.Minute)},
	}

	client, err := svc.AccessTokenFor(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, client)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer new", authHeader)
}

func TestOAuthServiceAccessTokenForMissingOrExpired(t *testing.T) {
	svc, _, tokens := newTestOAuthService(t, "https://auth.example.edu/token")
	now := time.Now()
	svc.now = func() time.Time { return now }

	client, err := svc.AccessTokenFor(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, client)

	tokens.tokens = []*models.OAuthToken{{UserID: "user-1", Provider: models.ProviderD2L, Token: "t", ExpiresAt: now.Add(-time.Second)}}
	client, err = svc.AccessTokenFor(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOAuthServiceAccessTokenForStoreError(t *testing.T) {
	svc, _, tokens := newTestOAuthService(t, "https://auth.example.edu/token")
	tokens.findErr = errors.New("db down")

	_, err := svc.AccessTokenFor(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestOAuthServiceSweepExpired(t *testing.T) {
	svc, states, tokens := newTestOAuthService(t, "https://auth.example.edu/token")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	removedStates, removedTokens, err := svc.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removedStates)
	assert.Equal(t, int64(1), removedTokens)
	assert.Equal(t, now.Add(-15*time.Minute), states.cutoff)
	assert.Equal(t, now, tokens.sweptAt)

	tokens.sweepErr = errors.New("boom")
	_, _, err = svc.SweepExpired(context.Background(), now)
	assert.Error(t, err)
}

func TestResolveAgainst(t *testing.T) {
	assert.Equal(t, "https://auth.example.edu/oauth2/auth", resolveAgainst("https://auth.example.edu", "/oauth2/auth"))
	assert.Equal(t, "https://other.example.edu/token", resolveAgainst("https://auth.example.edu", "https://other.example.edu/token"))
	assert.Equal(t, "/oauth2/auth", resolveAgainst("", "/oauth2/auth"))
}
