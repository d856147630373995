package service

import (
	"context"
	"time"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/config"
	"github.com/yourorg/bloodlink/internal/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login, and token validation. Session
// state lives entirely in the token; there is no ambient auth state.
type AuthService struct {
	userStore UserStore
	cfg       config.AuthConfig
	logger    *zap.Logger
}

// Claims are the JWT claims carried by access tokens
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new auth service
func NewAuthService(userStore UserStore, cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		userStore: userStore,
		cfg:       cfg,
		logger:    logger,
	}
}

// Register creates an account and returns a signed token. Donors must supply
// a blood group and city so broadcasts can reach them.
func (s *AuthService) Register(ctx context.Context, in *model.UserRegister) (*model.AuthResponse, error) {
	if in.Role == model.RoleDonor && (in.BloodGroup == "" || in.City == "") {
		return nil, apperr.Validation("donors must provide blood_group and city")
	}

	existing, err := s.userStore.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("email_in_use", "an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		BloodGroup:   in.BloodGroup,
		City:         in.City,
		Phone:        in.Phone,
		CreatedAt:    time.Now(),
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Registered user",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role))

	return &model.AuthResponse{Token: token, User: *user}, nil
}

// Login verifies credentials and returns a signed token
func (s *AuthService) Login(ctx context.Context, in *model.UserLogin) (*model.AuthResponse, error) {
	user, err := s.userStore.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{Token: token, User: *user}, nil
}

// ValidateToken parses a token and returns the user id and role it carries
func (s *AuthService) ValidateToken(tokenString string) (string, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", apperr.Unauthorized("invalid or expired token")
	}

	return claims.Subject, claims.Role, nil
}

// GetUser retrieves a user by id
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}
	return user, nil
}

// ListUsers retrieves users with pagination, optionally filtered by role
func (s *AuthService) ListUsers(ctx context.Context, role string, limit, offset int) ([]model.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.userStore.List(ctx, role, limit, offset)
}

func (s *AuthService) generateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
