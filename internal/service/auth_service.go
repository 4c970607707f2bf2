package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"helpdesk/internal/model"
	"helpdesk/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type SignupRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Mobile       string `json:"mobile" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	Role         string `json:"role"` // only employee; hr accounts come from CreateUser
	EmployeeCode string `json:"employee_code"`
}

// CreateUserRequest is the HR-only path that may assign any role
type CreateUserRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Mobile       string `json:"mobile" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	Role         string `json:"role" binding:"required"`
	EmployeeCode string `json:"employee_code"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"` // email or mobile
	Password   string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	EmployeeCode string    `json:"employee_code"`
	Role         string    `json:"role"`
	CreatedAt    string    `json:"created_at"`
}

// AuthService covers signup, the token lifecycle and principal resolution
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*UserResponse, error)
	CreateUser(ctx context.Context, p Principal, req CreateUserRequest) (*UserResponse, error)
	EnsureUser(ctx context.Context, req CreateUserRequest) (bool, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, p Principal) (*UserResponse, error)
	ResolvePrincipal(ctx context.Context, accessToken string) (Principal, error)
}

type authService struct {
	repo       repository.UserRepository
	tokens     TokenService
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(repo repository.UserRepository, tokens TokenService, bcryptCost int, logger *zap.Logger) AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{repo: repo, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

func mapUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Mobile:       user.Mobile,
		EmployeeCode: user.EmployeeCode,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func generateEmployeeCode() string {
	return "EMP" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Signup is the public registration path and only ever creates employees
func (s *authService) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	switch strings.TrimSpace(req.Role) {
	case "", model.RoleEmployee:
	case model.RoleHR:
		return nil, fmt.Errorf("%w: hr accounts are created by hr", ErrForbidden)
	default:
		return nil, invalid("role must be %s", model.RoleEmployee)
	}

	return s.createUser(ctx, CreateUserRequest{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Password:     req.Password,
		Role:         model.RoleEmployee,
		EmployeeCode: req.EmployeeCode,
	})
}

func (s *authService) CreateUser(ctx context.Context, p Principal, req CreateUserRequest) (*UserResponse, error) {
	if err := RequireHR(p); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created by hr", zap.String("actor_id", p.UserID), zap.String("user_id", user.ID.String()))
	return user, nil
}

// EnsureUser creates the account unless the email or mobile is already
// registered. It seeds the first hr account at startup.
func (s *authService) EnsureUser(ctx context.Context, req CreateUserRequest) (bool, error) {
	exists, err := s.repo.ExistsByEmailOrMobile(ctx, strings.ToLower(strings.TrimSpace(req.Email)), strings.TrimSpace(req.Mobile))
	if err != nil {
		return false, storageErr("check user uniqueness", err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.createUser(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

func (s *authService) createUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Mobile == "" || req.Password == "" {
		return nil, invalid("name, email, mobile and password are required")
	}

	role := req.Role
	if role == "" {
		role = model.RoleEmployee
	}
	if !model.ValidRole(role) {
		return nil, invalid("role must be %s or %s", model.RoleEmployee, model.RoleHR)
	}

	exists, err := s.repo.ExistsByEmailOrMobile(ctx, req.Email, req.Mobile)
	if err != nil {
		return nil, storageErr("check user uniqueness", err)
	}
	if exists {
		return nil, invalid("email or mobile already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code := strings.TrimSpace(req.EmployeeCode)
	if code == "" {
		code = generateEmployeeCode()
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		EmployeeCode: code,
		Password:     string(hashed),
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("email, mobile or employee code already registered")
		}
		return nil, storageErr("create user", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return mapUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}

	user, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return nil, storageErr("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates the pair; only the most recently issued refresh token is accepted
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
		}
		return nil, storageErr("load user", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != HashToken(refreshToken) {
		return nil, fmt.Errorf("%w: refresh token revoked", ErrUnauthenticated)
	}

	return s.issueTokens(ctx, user)
}

// Logout is idempotent; an unknown or stale token is not an error
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return storageErr("load user", err)
	}
	if user.RefreshToken == nil || *user.RefreshToken != HashToken(refreshToken) {
		return nil
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.ID.String(), nil); err != nil {
		return storageErr("clear refresh token", err)
	}
	return nil
}

func (s *authService) Profile(ctx context.Context, p Principal) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, lookupErr("user", err)
	}
	return mapUserResponse(user), nil
}

// ResolvePrincipal validates the access token and confirms the user still exists.
// The role comes from the stored record so a demotion takes effect immediately.
func (s *authService) ResolvePrincipal(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
		}
		return Principal{}, storageErr("load user", err)
	}

	return Principal{UserID: user.ID.String(), Role: user.Role}, nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID.String(), user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID.String(), user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	hash := HashToken(refresh)
	if err := s.repo.UpdateRefreshToken(ctx, user.ID.String(), &hash); err != nil {
		return nil, storageErr("store refresh token", err)
	}
	user.RefreshToken = &hash

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessExpiry().Seconds()),
		User:         mapUserResponse(user),
	}, nil
}
