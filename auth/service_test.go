package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestService_RegisterCustomerAndLogin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	req := RegisterCustomerRequest{
		Name:     "Amina Rahman",
		Email:    "Amina@Example.com",
		Phone:    "+880171000001",
		Password: "secret1",
	}

	ctx := context.Background()
	account, err := svc.RegisterCustomer(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}
	if account.Email != "amina@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}
	if account.Role != RoleCustomer {
		t.Fatalf("expected role %s got %s", RoleCustomer, account.Role)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}

	tokenAccountID, tokenRole, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenAccountID != account.ID {
		t.Fatalf("verify token: expected %q got %q", account.ID, tokenAccountID)
	}
	if tokenRole != RoleCustomer {
		t.Fatalf("verify token: expected role %s got %s", RoleCustomer, tokenRole)
	}
}

func TestService_RegisterWorkerTrimsServiceTags(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	account, err := svc.RegisterWorker(context.Background(), RegisterWorkerRequest{
		Name:     "Karim Mistri",
		Email:    "karim@example.com",
		Phone:    "+880171000002",
		Services: []string{" plumbing ", "", "electrical"},
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register worker: %v", err)
	}
	if account.Role != RoleWorker {
		t.Fatalf("expected role %s got %s", RoleWorker, account.Role)
	}

	got := repo.workerServices[account.ID]
	if len(got) != 2 || got[0] != "plumbing" || got[1] != "electrical" {
		t.Fatalf("unexpected service tags: %v", got)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	_, err := svc.RegisterCustomer(context.Background(), RegisterCustomerRequest{
		Name:     "Amina",
		Email:    "amina@example.com",
		Phone:    "+880171000001",
		Password: "short",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.RegisterCustomer(context.Background(), RegisterCustomerRequest{
		Email:    "amina@example.com",
		Password: "strongpassword",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	req := RegisterCustomerRequest{
		Name:     "Amina Rahman",
		Email:    "amina@example.com",
		Phone:    "+880171000001",
		Password: "strongpassword",
	}
	if _, err := svc.RegisterCustomer(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.RegisterCustomer(context.Background(), req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "unknown@example.com",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_SeedAdmin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	account, err := svc.SeedAdmin(context.Background(), "Ops@Example.com", "adminpass")
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if account.Role != RoleAdmin {
		t.Fatalf("expected role %s got %s", RoleAdmin, account.Role)
	}
	if account.Email != "ops@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}

	// Seeding again returns the same account.
	again, err := svc.SeedAdmin(context.Background(), "ops@example.com", "adminpass")
	if err != nil {
		t.Fatalf("re-seed admin: %v", err)
	}
	if again.ID != account.ID {
		t.Fatalf("expected same account id, got %q and %q", account.ID, again.ID)
	}
}

func TestService_GetAccount(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	ctx := context.Background()
	account, err := svc.RegisterCustomer(ctx, RegisterCustomerRequest{
		Name:     "Amina Rahman",
		Email:    "amina@example.com",
		Phone:    "+880171000001",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.ID != account.ID || got.Email != "amina@example.com" {
		t.Fatalf("unexpected account: %+v", got)
	}

	if _, err := svc.GetAccount(ctx, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

type fakeRepository struct {
	accountsByEmail map[string]Account
	accountsByID    map[string]Account
	workerServices  map[string][]string
	nextID          int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accountsByEmail: make(map[string]Account),
		accountsByID:    make(map[string]Account),
		workerServices:  make(map[string][]string),
		nextID:          1,
	}
}

func (f *fakeRepository) insert(email, passwordHash string, role Role) (Account, error) {
	key := strings.ToLower(email)
	if _, exists := f.accountsByEmail[key]; exists {
		return Account{}, ErrDuplicateEmail
	}

	account := Account{
		ID:           fmt.Sprintf("account-%d", f.nextID),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.nextID++
	f.accountsByEmail[key] = account
	f.accountsByID[account.ID] = account
	return account, nil
}

func (f *fakeRepository) CreateCustomerAccount(ctx context.Context, params CreateCustomerParams) (Account, error) {
	return f.insert(params.Email, params.PasswordHash, RoleCustomer)
}

func (f *fakeRepository) CreateWorkerAccount(ctx context.Context, params CreateWorkerParams) (Account, error) {
	account, err := f.insert(params.Email, params.PasswordHash, RoleWorker)
	if err != nil {
		return Account{}, err
	}
	f.workerServices[account.ID] = params.Services
	return account, nil
}

func (f *fakeRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	account, ok := f.accountsByEmail[strings.ToLower(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeRepository) GetAccountByID(ctx context.Context, id string) (Account, error) {
	account, ok := f.accountsByID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeRepository) EnsureAdminAccount(ctx context.Context, email, passwordHash string) (Account, error) {
	if existing, ok := f.accountsByEmail[strings.ToLower(email)]; ok {
		return existing, nil
	}
	return f.insert(email, passwordHash, RoleAdmin)
}
