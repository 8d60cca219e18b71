package templates

import "time"

// MaxContentLength bounds template bodies to ten concatenated SMS segments.
const MaxContentLength = 1600

// Template is a reusable SMS body with {{variable.path}} placeholders.
// Global templates have no owner; user templates carry a user_id.
type Template struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id,omitempty" db:"user_id"`

	Name    string   `json:"name" db:"name"`
	Content string   `json:"content" db:"content"`
	Tags    []string `json:"tags,omitempty"`

	IsGlobal bool `json:"is_global" db:"is_global"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
