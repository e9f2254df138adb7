// Package auth implements the identity provider: registration, login, and
// JWT session tokens. It also resolves sessions for the request pipeline.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"callmaker/internal/domain"
	apierrors "callmaker/pkg/errors"
)

// Repository is the user storage the service needs.
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Service provides registration, login, and token issuance/verification.
type Service struct {
	users     Repository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewService(users Repository, jwtSecret string, jwtExpiry time.Duration) *Service {
	return &Service{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
	}
}

// RegisterRequest captures the fields required to create a new account.
type RegisterRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required,min=2,max=100"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	OrganizationID string `json:"organization_id,omitempty" validate:"omitempty,uuid4"`
}

// LoginRequest captures credentials for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned on successful register/login.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Register creates a new user and returns a session token.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apierrors.ErrUserAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierrors.Wrap(err, "failed to hash password")
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(passwordHash),
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.OrganizationID != "" {
		orgID, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			return nil, apierrors.Wrap(err, "invalid organization id")
		}
		user.OrganizationID = &orgID
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.tokenResponse(user)
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if err == apierrors.ErrUserNotFound {
			return nil, apierrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apierrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierrors.ErrInvalidCredentials
	}

	// Best effort; a failed timestamp update must not block login.
	_ = s.users.TouchLastLogin(ctx, user.ID)

	return s.tokenResponse(user)
}

func (s *Service) tokenResponse(user *domain.User) (*TokenResponse, error) {
	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func (s *Service) issueToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"name":    user.Name,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}
	if user.OrganizationID != nil {
		claims["organization_id"] = user.OrganizationID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, apierrors.Wrap(err, "failed to sign token")
	}
	return token, expiresAt, nil
}

// Resolve implements the pipeline's SessionResolver: it verifies the bearer
// token and rebuilds the session from its claims. A request without an
// Authorization header resolves to (nil, nil).
func (s *Service) Resolve(r *http.Request) (*domain.Session, error) {
	authHeader := r.Header.Get("Authorization")
	if strings.TrimSpace(authHeader) == "" {
		return nil, nil
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apierrors.ErrInvalidCredentials
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierrors.ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierrors.ErrInvalidCredentials
	}
	if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
		return nil, apierrors.ErrInvalidCredentials
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, apierrors.ErrInvalidCredentials
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, apierrors.ErrInvalidCredentials
	}

	sess := &domain.Session{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		sess.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		sess.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		sess.Role = domain.Role(role)
	}
	if orgID, ok := claims["organization_id"].(string); ok {
		sess.OrganizationID = orgID
	}
	return sess, nil
}
