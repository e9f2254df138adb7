package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"callmaker/internal/domain"
	apierrors "callmaker/pkg/errors"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, "test-secret", 15*time.Minute)
}

func TestRegister_HashesPassword(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)

	var created *domain.User
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.User)
		}).
		Return(nil)

	s := newTestService(repo)
	resp, err := s.Register(context.Background(), &RegisterRequest{
		Email:    "New@Example.com",
		Name:     "New User",
		Password: "s3cret-pass",
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "new@example.com", created.Email)
	assert.Equal(t, domain.RoleUser, created.Role)
	assert.NotEqual(t, "s3cret-pass", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cret-pass")))
	assert.NotEmpty(t, resp.AccessToken)
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("ExistsByEmail", mock.Anything, "taken@example.com").Return(true, nil)

	s := newTestService(repo)
	_, err := s.Register(context.Background(), &RegisterRequest{
		Email:    "taken@example.com",
		Name:     "Someone",
		Password: "s3cret-pass",
	})

	assert.ErrorIs(t, err, apierrors.ErrUserAlreadyExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func testUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	orgID := uuid.New()
	return &domain.User{
		ID:             uuid.New(),
		Email:          "user@example.com",
		Name:           "Some User",
		PasswordHash:   string(hash),
		Role:           domain.RoleAdmin,
		OrganizationID: &orgID,
		IsActive:       true,
	}
}

func TestLogin(t *testing.T) {
	user := testUser(t, "correct-password")

	t.Run("valid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
		repo.On("TouchLastLogin", mock.Anything, user.ID).Return(nil)

		s := newTestService(repo)
		resp, err := s.Login(context.Background(), &LoginRequest{
			Email:    "user@example.com",
			Password: "correct-password",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, user.ID, resp.User.ID)
		assert.True(t, resp.ExpiresAt.After(time.Now()))
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)

		s := newTestService(repo)
		_, err := s.Login(context.Background(), &LoginRequest{
			Email:    "user@example.com",
			Password: "wrong-password",
		})

		assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
	})

	t.Run("unknown user maps to invalid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, apierrors.ErrUserNotFound)

		s := newTestService(repo)
		_, err := s.Login(context.Background(), &LoginRequest{
			Email:    "ghost@example.com",
			Password: "whatever-password",
		})

		assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := testUser(t, "correct-password")
		inactive.IsActive = false

		repo := new(MockUserRepository)
		repo.On("FindByEmail", mock.Anything, "user@example.com").Return(inactive, nil)

		s := newTestService(repo)
		_, err := s.Login(context.Background(), &LoginRequest{
			Email:    "user@example.com",
			Password: "correct-password",
		})

		assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
	})
}

func TestResolve_RoundTrip(t *testing.T) {
	user := testUser(t, "irrelevant-password")
	s := newTestService(new(MockUserRepository))

	token, _, err := s.issueToken(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	sess, err := s.Resolve(req)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, user.Email, sess.Email)
	assert.Equal(t, user.Name, sess.Name)
	assert.Equal(t, domain.RoleAdmin, sess.Role)
	assert.Equal(t, user.OrganizationID.String(), sess.OrganizationID)
}

func TestResolve_NoCredentials(t *testing.T) {
	s := newTestService(new(MockUserRepository))

	sess, err := s.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, err)
	assert.Nil(t, sess)
}

func TestResolve_RejectsBadTokens(t *testing.T) {
	s := newTestService(new(MockUserRepository))

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc123")
		_, err := s.Resolve(req)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		_, err := s.Resolve(req)
		assert.Error(t, err)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		other := NewService(new(MockUserRepository), "other-secret", 15*time.Minute)
		token, _, err := other.issueToken(testUser(t, "irrelevant-password"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		_, err = s.Resolve(req)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewService(new(MockUserRepository), "test-secret", -time.Minute)
		token, _, err := expired.issueToken(testUser(t, "irrelevant-password"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		_, err = s.Resolve(req)
		assert.Error(t, err)
	})
}
