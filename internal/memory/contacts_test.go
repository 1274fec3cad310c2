package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveContactDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveContact(ctx, Contact{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Category:  CategoryFriend,
		Company:   "Analytical Engines",
		Aliases:   []string{"The Countess"},
	})
	require.NoError(t, err)

	contacts, err := s.GetAllContacts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	c := contacts[0]
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "Ada Lovelace", c.DisplayName)
	assert.Equal(t, CategoryFriend, c.Category)
	// Tags are derived from category, company and aliases, lower-cased.
	assert.ElementsMatch(t, []string{"friend", "analytical engines", "the countess"}, c.Tags)
}

func TestSaveContactEmptyCategoryBecomesOther(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveContact(ctx, Contact{FirstName: "Bob"})
	require.NoError(t, err)

	contacts, err := s.GetAllContacts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, CategoryOther, contacts[0].Category)
	assert.Equal(t, "Bob", contacts[0].DisplayName)
}

func TestUpdateContactSparsePatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveContact(ctx, Contact{
		FirstName: "Marie",
		LastName:  "Curie",
		Category:  CategoryClient,
		Phones:    []Phone{{Number: "+33 1 23 45", Primary: true}},
	})
	require.NoError(t, err)

	// Patch only the company; everything else must survive.
	updated, err := s.UpdateContact(ctx, id, map[string]any{"company": "Radium Institute"})
	require.NoError(t, err)
	assert.Equal(t, "Radium Institute", updated.Company)
	assert.Equal(t, "Marie", updated.FirstName)
	assert.Equal(t, "Marie Curie", updated.DisplayName)
	require.Len(t, updated.Phones, 1)
	assert.Equal(t, "+33 1 23 45", updated.Phones[0].Number)

	// Tags regenerated from the new source fields.
	assert.Contains(t, updated.Tags, "radium institute")
	assert.Contains(t, updated.Tags, "client")
}

func TestUpdateContactDisplayNameRecompute(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveContact(ctx, Contact{FirstName: "Jean", LastName: "Dupont"})
	require.NoError(t, err)

	// Touching a name field recomputes the display name.
	updated, err := s.UpdateContact(ctx, id, map[string]any{"last_name": "Durand"})
	require.NoError(t, err)
	assert.Equal(t, "Jean Durand", updated.DisplayName)

	// An explicit display name wins and sticks.
	updated, err = s.UpdateContact(ctx, id, map[string]any{"display_name": "JD"})
	require.NoError(t, err)
	assert.Equal(t, "JD", updated.DisplayName)

	// A patch not touching names keeps the pinned display name.
	updated, err = s.UpdateContact(ctx, id, map[string]any{"company": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "JD", updated.DisplayName)
}

func TestUpdateContactMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateContact(context.Background(), 404, map[string]any{"company": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindContacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveContact(ctx, Contact{
		FirstName: "Grace",
		LastName:  "Hopper",
		Emails:    []Email{{Address: "grace@navy.mil", Primary: true}},
	})
	require.NoError(t, err)
	_, err = s.SaveContact(ctx, Contact{
		FirstName: "Alan",
		LastName:  "Turing",
		Aliases:   []string{"Prof"},
		Phones:    []Phone{{Number: "01632 960983"}},
	})
	require.NoError(t, err)

	for query, want := range map[string]string{
		"grace":    "Grace",
		"NAVY.MIL": "Grace",
		"prof":     "Alan",
		"01632":    "Alan",
	} {
		found, err := s.FindContacts(ctx, query)
		require.NoError(t, err)
		require.Len(t, found, 1, "query %q", query)
		assert.Equal(t, want, found[0].FirstName, "query %q", query)
	}

	found, err := s.FindContacts(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestContactTagsDeduplicated(t *testing.T) {
	c := normalizeContact(Contact{
		Category:     CategoryFamily,
		Relationship: Relationship{Value: "family"},
		Company:      "ACME",
		Aliases:      []string{"Bro", "bro"},
	})
	assert.Equal(t, []string{"family", "acme", "bro"}, contactTags(c))
}

func TestSaveContactStructuredRelationship(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveContact(ctx, Contact{
		FirstName:    "Nadia",
		Category:     CategoryFriend,
		Relationship: Relationship{Category: "friend", Role: "mentor"},
	})
	require.NoError(t, err)

	contacts, err := s.GetAllContacts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	c := contacts[0]
	assert.Equal(t, "friend", c.Relationship.Category)
	assert.Equal(t, "mentor", c.Relationship.Role)
	// Structured relationship fields are folded into the derived tags.
	assert.Contains(t, c.Tags, "mentor")
	assert.Contains(t, c.Tags, "friend")
}

func TestRelationshipWireForms(t *testing.T) {
	var r Relationship
	require.NoError(t, r.UnmarshalJSON([]byte(`"colleague"`)))
	assert.Equal(t, Relationship{Value: "colleague"}, r)

	require.NoError(t, r.UnmarshalJSON([]byte(`{"category":"friend","role":"mentor"}`)))
	assert.Equal(t, Relationship{Category: "friend", Role: "mentor"}, r)

	// The string form marshals back to a bare string.
	b, err := Relationship{Value: "colleague"}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"colleague"`, string(b))

	assert.Error(t, r.UnmarshalJSON([]byte(`42`)))
}
