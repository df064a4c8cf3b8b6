package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	goa "goa.design/goa/v3/pkg"

	"enquirydesk/internal/domain"
	"enquirydesk/internal/metrics"
	"enquirydesk/internal/store"
	"enquirydesk/internal/util"
	apperrors "enquirydesk/pkg/errors"
)

const minUsernameLength = 3

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AdminView is the public shape of an admin account
type AdminView struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullName,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// ToAdminView strips credentials from u
func ToAdminView(u *domain.AdminUser) *AdminView {
	return &AdminView{
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// CreateAdminInput describes a new admin account
type CreateAdminInput struct {
	Username string
	Email    string
	FullName string
	Password string
	// Replace overwrites an existing account with the same username.
	Replace bool
}

// AuthService authenticates admin console users
type AuthService struct {
	kv     store.KV
	tokens *util.TokenIssuer
	log    *zap.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(kv store.KV, tokens *util.TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{
		kv:     kv,
		tokens: tokens,
		log:    log.Named("auth"),
		now:    time.Now,
	}
}

// Login checks credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = domain.NormalizeUsername(username)
	password = strings.TrimSpace(password)

	v := &validator{}
	v.required("username", username)
	v.required("password", password)
	if err := v.result(); err != nil {
		return nil, err
	}

	s.log.Info("login attempt", zap.String("username", username))

	user, err := s.lookup(ctx, username)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		if apperrors.IsNotFound(err) {
			s.log.Info("login failed: unknown user", zap.String("username", username))
			return nil, apperrors.Unauthorized("incorrect username or password")
		}
		return nil, err
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		s.log.Info("login failed: invalid password", zap.String("username", username))
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.Unauthorized("incorrect username or password")
	}

	if !user.IsActive {
		s.log.Info("login failed: inactive user", zap.String("username", username))
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.Unauthorized("user account is inactive")
	}

	token, expiresAt, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token", err)
	}

	// Last-login bookkeeping must not block the login itself.
	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.save(ctx, user); err != nil {
		s.log.Warn("failed to record last login", zap.String("username", username), zap.Error(err))
	}

	s.log.Info("login successful", zap.String("username", username))
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate resolves a bearer token to an active admin
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.AdminUser, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	user, err := s.lookup(ctx, claims.Username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("user not found")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("user account is inactive")
	}
	return user, nil
}

// CreateAdmin creates (or with Replace, resets) an admin account
func (s *AuthService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*domain.AdminUser, error) {
	username := domain.NormalizeUsername(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := strings.TrimSpace(in.Password)

	v := &validator{}
	v.required("username", username)
	v.minLength("username", username, minUsernameLength)
	v.required("email", email)
	v.pattern("email", email, emailPattern)
	v.required("password", password)
	if password != "" && utf8.RuneCountInString(password) < util.MinPasswordLength {
		v.add("password", goa.PermanentError("invalid_length", "password must be at least %d characters", util.MinPasswordLength))
	}
	if err := v.result(); err != nil {
		return nil, err
	}

	existing, err := s.lookup(ctx, username)
	switch {
	case err == nil && !in.Replace:
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "username already registered")
	case err != nil && !apperrors.IsNotFound(err):
		return nil, err
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &domain.AdminUser{
		Username:       username,
		Email:          email,
		FullName:       strings.TrimSpace(in.FullName),
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      s.now().UTC(),
	}
	if existing != nil {
		user.CreatedAt = existing.CreatedAt
		user.LastLogin = existing.LastLogin
	}

	if err := s.save(ctx, user); err != nil {
		return nil, apperrors.Internal("failed to create user", err)
	}

	s.log.Info("admin account saved", zap.String("username", username), zap.Bool("replaced", existing != nil))
	return user, nil
}

func (s *AuthService) lookup(ctx context.Context, username string) (*domain.AdminUser, error) {
	data, err := s.kv.Get(ctx, domain.AdminKey(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		s.log.Error("failed to load user", zap.String("username", username), zap.Error(err))
		return nil, apperrors.Internal("failed to load user", err)
	}

	var user domain.AdminUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, apperrors.Internal("stored user could not be read", err)
	}
	return &user, nil
}

func (s *AuthService) save(ctx context.Context, user *domain.AdminUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.kv.Set(ctx, domain.AdminKey(user.Username), data)
}
