package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"algoverse/internal/common"
	"algoverse/internal/common/security"
	"algoverse/internal/domain/model"
	"algoverse/internal/domain/repository"

	"github.com/google/uuid"
)

const minPasswordLength = 8

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest accepts either a username or an email in login_field.
type LoginRequest struct {
	LoginField string `json:"login_field"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Email == "" {
		return nil, common.Errorf("username and email are required: %w", common.ErrBadRequest)
	}
	if !strings.Contains(req.Email, "@") {
		return nil, common.Errorf("invalid email address: %w", common.ErrBadRequest)
	}
	if len(req.Password) < minPasswordLength {
		return nil, common.Errorf("password must be at least %d characters: %w", minPasswordLength, common.ErrBadRequest)
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.LoginField == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	// An @ marks the login field as an email; usernames cannot contain one.
	var user *model.User
	var err error
	if strings.Contains(req.LoginField, "@") {
		user, err = s.userRepo.FindByEmail(ctx, req.LoginField)
	} else {
		user, err = s.userRepo.FindByUsername(ctx, req.LoginField)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Same response as a bad password, so probes cannot enumerate
			// accounts.
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, common.ErrUnauthorized
	}

	return s.issueToken(user)
}

// issueToken signs a JWT for the user and strips the password hash from the
// copy handed back to the transport layer.
func (s *AuthService) issueToken(user *model.User) (*AuthResponse, error) {
	token, err := security.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResponse{User: user, Token: token}, nil
}
