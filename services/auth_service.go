package services

import (
	"context"
	"errors"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/logging"
	"food-marketplace-api/models"
	"food-marketplace-api/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

type RegisterInput struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6,max=72"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=customer restaurant driver"`
	Phone    string          `json:"phone" validate:"max=32"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	log    *logrus.Logger
}

func NewAuthService(repos Repositories, tokens TokenIssuer, log *logrus.Logger) *AuthService {
	return &AuthService{users: repos.Users, tokens: tokens, log: log}
}

// Register creates an account. Admin accounts cannot be self-registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Backend(err, "hash password")
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("user registered")
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Authentication("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Authentication("invalid email or password")
	}
	return s.issue(user)
}

// Profile resolves the caller to its stored user.
func (s *AuthService) Profile(ctx context.Context, caller models.Caller) (*models.User, error) {
	user, err := s.users.Get(ctx, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Authentication("caller could not be resolved")
	}
	return user, err
}

func (s *AuthService) ListUsers(ctx context.Context, caller models.Caller) ([]models.User, error) {
	if !caller.Is(models.RoleAdmin) {
		return nil, apperr.Forbidden("admin access required")
	}
	return s.users.List(ctx)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Backend(err, "issue token")
	}
	return &AuthResult{Token: token, User: user}, nil
}
