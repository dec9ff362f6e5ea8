package dto

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// UserRegisterRequest payload for new users. Only the field matching the
// configured identifier kind is read.
type UserRegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	NIC            string `json:"nic"`
	PaymentAccount string `json:"paymentAccount"`
	Password       string `json:"password"`
}

// Identifier returns the login key for kind.
func (r UserRegisterRequest) Identifier(kind domain.IdentifierKind) string {
	if kind == domain.IdentifierUsername {
		return r.Username
	}
	return r.Email
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identifier returns the login key for kind.
func (r UserLoginRequest) Identifier(kind domain.IdentifierKind) string {
	if kind == domain.IdentifierUsername {
		return r.Username
	}
	return r.Email
}

// UserResponse is the public view of a user. It never includes the password hash.
type UserResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username,omitempty"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	NIC            string    `json:"nic"`
	PaymentAccount string    `json:"paymentAccount"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUserResponse maps a domain user to its public view.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		NIC:            u.NIC,
		PaymentAccount: u.PaymentAccount,
		CreatedAt:      u.CreatedAt,
	}
}

// RegisterResponse is returned by POST /register.
type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
