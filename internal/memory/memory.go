// Package memory provides Clara's durable structured memory: typed
// key-content-tags items, a preference table and structured contacts, backed
// by SQLite (default) or PostgreSQL.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies the type of a memory item. Immutable after creation.
type Kind string

// Item kinds
const (
	KindNote     Kind = "note"
	KindTodo     Kind = "todo"
	KindProcess  Kind = "process"
	KindProtocol Kind = "protocol"
	KindContact  Kind = "contact"
)

// Valid reports whether k is a known item kind.
func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindTodo, KindProcess, KindProtocol, KindContact:
		return true
	}
	return false
}

// Preference scopes
const (
	ScopeGlobal = "global"
	ScopeAgent  = "agent"
)

// Preference sources
const (
	SourceUser     = "user"
	SourceInferred = "inferred"
)

// Contact categories
const (
	CategoryFamily   = "family"
	CategoryFriend   = "friend"
	CategoryClient   = "client"
	CategorySupplier = "supplier"
	CategoryOther    = "other"
)

// Sentinel errors for memory operations.
var (
	// ErrNotFound indicates a missing item or contact.
	ErrNotFound = errors.New("memory record not found")
	// ErrInvalidKind indicates an unknown item kind.
	ErrInvalidKind = errors.New("invalid memory kind")
)

// Item is a single typed memory record.
type Item struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preference is a single user or inferred preference. Keys are unique across
// the table; saving an existing key updates the row in place.
type Preference struct {
	ID         int64     `json:"id"`
	Scope      string    `json:"scope"`
	Agent      string    `json:"agent,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Phone is a single phone number attached to a contact.
type Phone struct {
	Number  string `json:"number"`
	Label   string `json:"label,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// Email is a single email address attached to a contact.
type Email struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// Relationship describes how a contact relates to the user. On the wire it
// is either a bare string ("friend") or an object with category and role
// fields; both forms round-trip unchanged.
type Relationship struct {
	Value    string
	Category string
	Role     string
}

// IsZero reports whether no relationship information is set.
func (r Relationship) IsZero() bool {
	return r.Value == "" && r.Category == "" && r.Role == ""
}

// MarshalJSON emits the form the value arrived in: a bare string unless a
// structured field is present.
func (r Relationship) MarshalJSON() ([]byte, error) {
	if r.Category == "" && r.Role == "" {
		return json.Marshal(r.Value)
	}
	return json.Marshal(struct {
		Value    string `json:"value,omitempty"`
		Category string `json:"category,omitempty"`
		Role     string `json:"role,omitempty"`
	}{r.Value, r.Category, r.Role})
}

// UnmarshalJSON accepts both the string and the structured form.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Relationship{Value: s}
		return nil
	}
	var obj struct {
		Value    string `json:"value"`
		Category string `json:"category"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("relationship: %w", err)
	}
	*r = Relationship{Value: obj.Value, Category: obj.Category, Role: obj.Role}
	return nil
}

// Contact is a structured person record. It is persisted as the JSON content
// of an item of KindContact; Tags are always derived from category,
// relationship, company and aliases, never stored independently.
type Contact struct {
	ID           int64        `json:"id,omitempty"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	DisplayName  string       `json:"display_name"`
	Aliases      []string     `json:"aliases"`
	Category     string       `json:"category"`
	Relationship Relationship `json:"relationship"`
	Phones       []Phone      `json:"phones"`
	Emails       []Email      `json:"emails"`
	Company      string       `json:"company,omitempty"`
	Role         string       `json:"role,omitempty"`
	Notes        []string     `json:"notes"`
	Tags         []string     `json:"tags,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}

// Tagger generates tags from item content when the caller supplies none.
// Implementations must be pure and must never fail.
type Tagger func(content string) []string

// Store is the full structured-memory surface the dispatcher talks to.
// Implementations must be safe for concurrent use; every call is a single
// independent unit of work with no cross-call transaction.
type Store interface {
	// SaveItem stores a new item. A nil tags slice means "auto-tag from
	// content"; an empty non-nil slice stores no tags.
	SaveItem(ctx context.Context, kind Kind, content string, tags []string) (int64, error)

	// GetItem retrieves a single item by ID, or ErrNotFound.
	GetItem(ctx context.Context, id int64) (*Item, error)

	// GetItems lists items newest-first. An empty kind lists all kinds.
	// A non-positive limit means no limit.
	GetItems(ctx context.Context, kind Kind, limit int) ([]Item, error)

	// SearchItems performs a case-insensitive substring match against item
	// content (tags are not searched), newest-first.
	SearchItems(ctx context.Context, query string, kind Kind) ([]Item, error)

	// UpdateItem mutates content and/or tags of an existing item. It returns
	// false (not an error) when the ID does not exist. With both content and
	// tags nil the call is a no-op.
	UpdateItem(ctx context.Context, id int64, content *string, tags []string) (bool, error)

	// DeleteItem removes an item. Deleting a missing ID is a no-op.
	DeleteItem(ctx context.Context, id int64) error

	// SavePreference upserts a preference keyed on Key. It returns false on
	// any storage failure rather than an error; the failure reason is logged.
	SavePreference(ctx context.Context, p Preference) bool

	// GetPreferenceByKey returns the preference for a key, or nil if absent.
	GetPreferenceByKey(ctx context.Context, key string) (*Preference, error)

	// ListPreferences returns all preferences.
	ListPreferences(ctx context.Context) ([]Preference, error)

	// SearchPreferences matches a case-insensitive substring over key, value
	// and domain.
	SearchPreferences(ctx context.Context, query string) ([]Preference, error)

	// SaveContact stores a structured contact and returns its ID.
	SaveContact(ctx context.Context, c Contact) (int64, error)

	// UpdateContact applies a sparse patch to an existing contact. It fails
	// with ErrNotFound when the ID does not exist.
	UpdateContact(ctx context.Context, id int64, updates map[string]any) (*Contact, error)

	// FindContacts matches a query against names, aliases, emails, phones
	// and company.
	FindContacts(ctx context.Context, query string) ([]Contact, error)

	// GetAllContacts lists contacts newest-first up to limit.
	GetAllContacts(ctx context.Context, limit int) ([]Contact, error)

	// Reset wipes the store. With hard=true the underlying storage is
	// deleted entirely and re-initialized from empty; with hard=false all
	// tables are truncated but the storage location and schema survive.
	Reset(ctx context.Context, hard bool) error

	// Close releases the underlying storage.
	Close() error
}
