package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Contact records are layered on the generic item CRUD: the structured
// fields live as JSON in the item content, the derived tags in the item tags
// column. Both store backends share this logic.

// normalizeContact fills derived defaults: display name from first/last when
// unset, category "other", non-nil slices.
func normalizeContact(c Contact) Contact {
	if c.DisplayName == "" {
		c.DisplayName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	if c.Category == "" {
		c.Category = CategoryOther
	}
	if c.Aliases == nil {
		c.Aliases = []string{}
	}
	if c.Phones == nil {
		c.Phones = []Phone{}
	}
	if c.Emails == nil {
		c.Emails = []Email{}
	}
	if c.Notes == nil {
		c.Notes = []string{}
	}
	return c
}

// contactTags derives the tag list from category, relationship, company and
// aliases: lower-cased, deduplicated, insertion-ordered.
func contactTags(c Contact) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		tags = append(tags, t)
	}

	add(c.Category)
	add(c.Relationship.Value)
	add(c.Relationship.Category)
	add(c.Relationship.Role)
	add(c.Company)
	for _, alias := range c.Aliases {
		add(alias)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// encodeContact serializes the structured fields. ID, timestamps and tags
// are carried by the item row, not the JSON payload.
func encodeContact(c Contact) (string, error) {
	c.ID = 0
	c.Tags = nil
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode contact: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("encode contact: %w", err)
	}
	delete(payload, "created_at")
	delete(payload, "updated_at")
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode contact: %w", err)
	}
	return string(b), nil
}

// decodeContact rebuilds a Contact from its item row.
func decodeContact(item Item) (Contact, error) {
	var c Contact
	if err := json.Unmarshal([]byte(item.Content), &c); err != nil {
		return Contact{}, fmt.Errorf("decode contact %d: %w", item.ID, err)
	}
	c.ID = item.ID
	c.Tags = item.Tags
	c.CreatedAt = item.CreatedAt
	c.UpdatedAt = item.UpdatedAt
	return c, nil
}

func saveContact(ctx context.Context, s Store, c Contact) (int64, error) {
	normalized := normalizeContact(c)
	content, err := encodeContact(normalized)
	if err != nil {
		return 0, err
	}
	return s.SaveItem(ctx, KindContact, content, contactTags(normalized))
}

func updateContact(ctx context.Context, s Store, id int64, updates map[string]any) (*Contact, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != KindContact {
		return nil, fmt.Errorf("%w: item %d is not a contact", ErrNotFound, id)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(item.Content), &data); err != nil {
		return nil, fmt.Errorf("decode contact %d: %w", id, err)
	}
	previousDisplay, _ := data["display_name"].(string)

	_, explicitDisplay := updates["display_name"]
	_, touchedFirst := updates["first_name"]
	_, touchedLast := updates["last_name"]

	// Sparse merge: only fields present in the patch are replaced.
	for k, v := range updates {
		data[k] = v
	}

	merged, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("merge contact %d: %w", id, err)
	}
	var c Contact
	if err := json.Unmarshal(merged, &c); err != nil {
		return nil, fmt.Errorf("merge contact %d: %w", id, err)
	}

	// Display name is recomputed only when the patch touches name fields and
	// does not pin it explicitly.
	if !explicitDisplay {
		if touchedFirst || touchedLast {
			c.DisplayName = strings.TrimSpace(c.FirstName + " " + c.LastName)
		} else {
			c.DisplayName = previousDisplay
		}
	}

	normalized := normalizeContact(c)
	content, err := encodeContact(normalized)
	if err != nil {
		return nil, err
	}
	tags := contactTags(normalized)
	ok, err := s.UpdateItem(ctx, id, &content, tags)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: contact %d", ErrNotFound, id)
	}

	normalized.ID = id
	normalized.Tags = tags
	normalized.CreatedAt = item.CreatedAt
	return &normalized, nil
}

func findContacts(ctx context.Context, s Store, query string) ([]Contact, error) {
	items, err := s.GetItems(ctx, KindContact, 0)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]Contact, 0)
	for _, item := range items {
		c, err := decodeContact(item)
		if err != nil {
			continue // tolerate a malformed row rather than failing the search
		}
		if contactMatches(c, needle) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// contactMatches checks the query against name fields, aliases, emails,
// phones and company.
func contactMatches(c Contact, needle string) bool {
	if needle == "" {
		return true
	}
	fields := []string{c.FirstName, c.LastName, c.DisplayName, c.Company}
	fields = append(fields, c.Aliases...)
	for _, e := range c.Emails {
		fields = append(fields, e.Address)
	}
	for _, p := range c.Phones {
		fields = append(fields, p.Number)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func getAllContacts(ctx context.Context, s Store, limit int) ([]Contact, error) {
	items, err := s.GetItems(ctx, KindContact, limit)
	if err != nil {
		return nil, err
	}
	contacts := make([]Contact, 0, len(items))
	for _, item := range items {
		c, err := decodeContact(item)
		if err != nil {
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}
