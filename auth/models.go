package auth

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
)

// Account is the domain representation of an authenticated account.
// It mirrors the auth_accounts table and carries no JSON annotations so it
// can be reused by different presentation layers.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterCustomerRequest contains customer registration data supplied by callers.
type RegisterCustomerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// RegisterWorkerRequest contains worker registration data. Workers start in
// pending approval and stay invisible to customers until an admin approves them.
type RegisterWorkerRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Description string   `json:"description"`
	Photo       string   `json:"photo"`
	Services    []string `json:"services"`
	Password    string   `json:"password"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
