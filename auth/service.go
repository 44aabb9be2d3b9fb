package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 6 characters")
	// ErrValidation marks malformed registration input.
	ErrValidation = errors.New("auth: invalid input")
)

// Service handles authentication business logic.
type Service struct {
	repo      Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// LoginResult bundles the token and account returned after a successful login.
type LoginResult struct {
	Token   string
	Account Account
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterCustomer creates a customer account with its profile.
func (s *Service) RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (Account, error) {
	if err := validateRegistration(req.Name, req.Email, req.Phone, req.Password); err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("auth: hash password: %w", err)
	}

	return s.repo.CreateCustomerAccount(ctx, CreateCustomerParams{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
	})
}

// RegisterWorker creates a worker account with its pending profile and tags.
func (s *Service) RegisterWorker(ctx context.Context, req RegisterWorkerRequest) (Account, error) {
	if err := validateRegistration(req.Name, req.Email, req.Phone, req.Password); err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("auth: hash password: %w", err)
	}

	services := make([]string, 0, len(req.Services))
	for _, svc := range req.Services {
		svc = strings.TrimSpace(svc)
		if svc != "" {
			services = append(services, svc)
		}
	}

	return s.repo.CreateWorkerAccount(ctx, CreateWorkerParams{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		Description:  strings.TrimSpace(req.Description),
		Photo:        req.Photo,
		Services:     services,
		PasswordHash: string(hash),
	})
}

// Login authenticates an account and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	account, err := s.repo.GetAccountByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(account.ID, account.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{Token: token, Account: account}, nil
}

// GetAccount returns the account for the given id.
func (s *Service) GetAccount(ctx context.Context, accountID string) (Account, error) {
	return s.repo.GetAccountByID(ctx, accountID)
}

// SeedAdmin provisions the admin account. Call at deploy time, never from a
// request path.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (Account, error) {
	if len(password) < 6 {
		return Account{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("auth: hash admin password: %w", err)
	}
	return s.repo.EnsureAdminAccount(ctx, normalizeEmail(email), string(hash))
}

// VerifyToken validates a bearer token and returns the account ID and role.
func (s *Service) VerifyToken(tokenString string) (string, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("auth: invalid token")
	}

	accountID, ok := claims["account_id"].(string)
	if !ok {
		return "", "", fmt.Errorf("auth: invalid account_id in token")
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return "", "", fmt.Errorf("auth: invalid role in token")
	}
	role := Role(roleStr)
	if !isValidRole(role) {
		return "", "", fmt.Errorf("auth: invalid role %q in token", roleStr)
	}
	return accountID, role, nil
}

func (s *Service) generateToken(accountID string, role Role) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"account_id": accountID,
		"role":       role,
		"exp":        now.Add(s.tokenTTL).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func validateRegistration(name, email, phone, password string) error {
	if len(password) < 6 {
		return ErrWeakPassword
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(phone) == "" {
		return fmt.Errorf("%w: name, email and phone are required", ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidRole(role Role) bool {
	switch role {
	case RoleCustomer, RoleWorker, RoleAdmin:
		return true
	default:
		return false
	}
}
