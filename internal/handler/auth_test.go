package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmaker/internal/api"
	"callmaker/internal/auth"
	"callmaker/internal/domain"
	apierrors "callmaker/pkg/errors"
	"callmaker/pkg/logger"
	"callmaker/pkg/validator"
)

// memoryUserRepo is an in-memory auth.Repository for end-to-end tests.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return apierrors.ErrUserAlreadyExists
	}
	r.users[user.Email] = user
	return nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[email]; ok {
		return user, nil
	}
	return nil, apierrors.ErrUserNotFound
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, apierrors.ErrUserNotFound
}

func (r *memoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[email]
	return ok, nil
}

func (r *memoryUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return nil
}

func newTestRouter() *mux.Router {
	svc := auth.NewService(newMemoryUserRepo(), "test-secret", 15*time.Minute)
	p := api.NewPipeline(svc, api.NewMemoryLimiter(), validator.New(), logger.NewNop(),
		api.RateLimit{Requests: 100, Window: time.Minute})

	r := mux.NewRouter()
	NewAuthHandler(svc, logger.NewNop()).Register(r, p)
	return r
}

func postJSON(r *mux.Router, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthRoutes_Register(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(router, "/api/v1/auth/register",
		`{"email":"ann@example.com","name":"Ann","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])

	// Same email again conflicts.
	rec = postJSON(router, "/api/v1/auth/register",
		`{"email":"ann@example.com","name":"Ann","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "CONFLICT", env.Code)
}

func TestAuthRoutes_Login(t *testing.T) {
	router := newTestRouter()
	rec := postJSON(router, "/api/v1/auth/register",
		`{"email":"ann@example.com","name":"Ann","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("wrong password", func(t *testing.T) {
		rec := postJSON(router, "/api/v1/auth/login",
			`{"email":"ann@example.com","password":"wrong-password"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var env api.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "UNAUTHORIZED", env.Code)
	})

	t.Run("valid credentials", func(t *testing.T) {
		rec := postJSON(router, "/api/v1/auth/login",
			`{"email":"ann@example.com","password":"s3cret-pass"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		var env api.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.True(t, env.Success)
		assert.NotEmpty(t, env.Data.(map[string]interface{})["access_token"])
	})
}

func TestAuthRoutes_RegisterRateLimit(t *testing.T) {
	router := newTestRouter()

	// The register route allows 5 requests per minute per caller; httptest
	// requests share one client address.
	for i := 0; i < 5; i++ {
		rec := postJSON(router, "/api/v1/auth/register",
			fmt.Sprintf(`{"email":"u%d@example.com","name":"User","password":"s3cret-pass"}`, i))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := postJSON(router, "/api/v1/auth/register",
		`{"email":"u6@example.com","name":"User","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "RATE_LIMITED", env.Code)
}
