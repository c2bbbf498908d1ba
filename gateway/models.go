package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the author role of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Roles lists the accepted message roles.
func Roles() []Role {
	return []Role{RoleUser, RoleAssistant, RoleSystem}
}

// InventoryItem is one {name, quantity} pair of a snapshot.
type InventoryItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// InventorySnapshot is one point-in-time inventory record. Snapshots are insert-only.
type InventorySnapshot struct {
	bun.BaseModel `bun:"table:inventory_snapshots,alias:s"`

	ID        uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Timestamp time.Time       `bun:"timestamp,notnull" json:"timestamp"`
	Inventory []InventoryItem `bun:"inventory,type:jsonb,notnull" json:"inventory"`
	CreatedAt time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// Thread is a conversation container owned by an optional user.
type Thread struct {
	bun.BaseModel `bun:"table:threads,alias:t"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	UserID    string    `bun:"user_id,nullzero" json:"user_id,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Message is one entry of a thread.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID        uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	ThreadID  uuid.UUID      `bun:"thread_id,type:uuid,notnull" json:"thread_id"`
	Role      Role           `bun:"role,notnull" json:"role"`
	Content   string         `bun:"content,notnull" json:"content"`
	UserID    string         `bun:"user_id,nullzero" json:"user_id,omitempty"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,nullzero" json:"metadata"`
	CreatedAt time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

// MessagePatch holds the mutable fields of a message. Nil fields are left unchanged.
type MessagePatch struct {
	Content  *string
	Metadata map[string]any
}

// UserProfile is the application-side profile row created on first sign-in.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:p"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID          string    `bun:"user_id,notnull,unique" json:"user_id"`
	Email           string    `bun:"email" json:"email"`
	Name            string    `bun:"name" json:"name"`
	AvatarURL       string    `bun:"avatar_url" json:"avatar_url"`
	SoftPreferences *string   `bun:"soft_preferences" json:"soft_preferences"`
	HardPreferences *string   `bun:"hard_preferences" json:"hard_preferences"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// ProfilePatch holds the mutable preference fields of a profile. Nil fields are left
// unchanged.
type ProfilePatch struct {
	SoftPreferences *string
	HardPreferences *string
}

// Page bounds a paginated select.
type Page struct {
	Limit  int
	Offset int
}

// Paged is one page of rows plus the exact total.
type Paged[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
