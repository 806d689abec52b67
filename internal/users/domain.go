package users

import (
	"time"

	"github.com/relaydesk/relaydesk/internal/access"
)

// User is an agent account as shown on the admin screen.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserInput carries a new account.
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateUserInput carries account edits.
type UpdateUserInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	IsActive bool   `json:"is_active"`
}

// GrantInput carries a permission record assignment. Accounts without a
// grant row are unrestricted.
type GrantInput struct {
	TotalPages  access.PageBit          `json:"total_pages"`
	Permissions []access.PagePermission `json:"permissions"`
}
