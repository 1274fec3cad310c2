package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mymy770/Clara/internal/directive"
	"github.com/mymy770/Clara/internal/memory"
)

type memoryHandler func(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome)

// memoryHandlers maps every recognized memory action to its handler. An
// action name absent from this table is passed through as plain text.
var memoryHandlers = map[string]memoryHandler{
	"save_note":       saveItemHandler(memory.KindNote, "Note"),
	"list_notes":      listItemsHandler(memory.KindNote, "note"),
	"search_notes":    searchItemsHandler(memory.KindNote),
	"save_todo":       saveItemHandler(memory.KindTodo, "Todo"),
	"list_todos":      listItemsHandler(memory.KindTodo, "todo"),
	"search_todos":    searchItemsHandler(memory.KindTodo),
	"save_process":    saveItemHandler(memory.KindProcess, "Process"),
	"list_processes":  listItemsHandler(memory.KindProcess, "process"),
	"save_protocol":   saveItemHandler(memory.KindProtocol, "Protocol"),
	"list_protocols":  listItemsHandler(memory.KindProtocol, "protocol"),
	"save_contact":    saveContactAction,
	"update_contact":  updateContactAction,
	"list_contacts":   listContactsAction,
	"search_contacts": searchContactsAction,
	"set_preference":  setPreferenceAction,
	"delete_item":     deleteItemAction,
}

func saveItemHandler(kind memory.Kind, label string) memoryHandler {
	return func(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
		content := d.String("content")
		if content == "" {
			return failf("Missing content for %s", strings.ToLower(label))
		}
		id, err := disp.store.SaveItem(ctx, kind, content, d.StringSlice("tags"))
		if err != nil {
			return failf("Could not save %s: %v", strings.ToLower(label), err)
		}
		return successf("%s saved (ID: %d)", label, id)
	}
}

func listItemsHandler(kind memory.Kind, label string) memoryHandler {
	return func(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
		limit := 0
		if n, ok := d.Int64("limit"); ok {
			limit = int(n)
		}
		items, err := disp.store.GetItems(ctx, kind, limit)
		if err != nil {
			return failf("Could not list %ss: %v", label, err)
		}
		if len(items) == 0 {
			return emptyf("No %ss found", label)
		}
		return successf("%d %s(s):\n%s", len(items), label, formatItems(items))
	}
}

func searchItemsHandler(kind memory.Kind) memoryHandler {
	return func(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
		query := d.String("query")
		if query == "" {
			return failf("Missing query for search")
		}
		items, err := disp.store.SearchItems(ctx, query, kind)
		if err != nil {
			return failf("Search failed: %v", err)
		}
		if len(items) == 0 {
			return emptyf("No results for '%s'", query)
		}
		return successf("%d result(s) for '%s':\n%s", len(items), query, formatItems(items))
	}
}

func saveContactAction(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
	payload := d.Map("contact")
	if payload == nil {
		return failf("Missing contact data")
	}
	var c memory.Contact
	if err := decodeInto(payload, &c); err != nil {
		return failf("Invalid contact data: %v", err)
	}
	id, err := disp.store.SaveContact(ctx, c)
	if err != nil {
		return failf("Could not save contact: %v", err)
	}
	saved, err := disp.store.GetItem(ctx, id)
	name := c.DisplayName
	if err == nil && name == "" {
		var stored memory.Contact
		if json.Unmarshal([]byte(saved.Content), &stored) == nil {
			name = stored.DisplayName
		}
	}
	return successf("Contact saved (ID: %d): %s", id, name)
}

func updateContactAction(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
	id, ok := d.Int64("contact_id")
	if !ok {
		return failf("Missing contact_id for update")
	}
	updates := d.Map("updates")
	if updates == nil {
		return failf("Missing updates for contact")
	}
	c, err := disp.store.UpdateContact(ctx, id, updates)
	if errors.Is(err, memory.ErrNotFound) {
		return failf("Contact %d not found", id)
	}
	if err != nil {
		return failf("Could not update contact %d: %v", id, err)
	}
	return successf("Contact updated (ID: %d): %s", id, c.DisplayName)
}

func listContactsAction(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
	limit := 0
	if n, ok := d.Int64("limit"); ok {
		limit = int(n)
	}
	contacts, err := disp.store.GetAllContacts(ctx, limit)
	if err != nil {
		return failf("Could not list contacts: %v", err)
	}
	if len(contacts) == 0 {
		return emptyf("No contacts found")
	}
	return successf("%d contact(s):\n%s", len(contacts), formatContacts(contacts))
}

func searchContactsAction(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
	query := d.String("query")
	if query == "" {
		return failf("Missing query for contact search")
	}
	contacts, err := disp.store.FindContacts(ctx, query)
	if err != nil {
		return failf("Contact search failed: %v", err)
	}
	if len(contacts) == 0 {
		return emptyf("No contacts match '%s'", query)
	}
	return successf("%d contact(s) match '%s':\n%s", len(contacts), query, formatContacts(contacts))
}

func setPreferenceAction(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
	key := d.String("key")
	if key == "" {
		return failf("Missing key for preference")
	}
	if !d.Has("value") {
		return failf("Missing value for preference")
	}
	value := fmt.Sprintf("%v", d["value"])
	// Absent confidence means full confidence; an explicit 0.0 is kept.
	confidence := 1.0
	if f, ok := d.Float("confidence"); ok {
		confidence = f
	}
	p := memory.Preference{
		Scope:      d.String("scope"),
		Agent:      d.String("agent"),
		Domain:     d.String("domain"),
		Key:        key,
		Value:      value,
		Source:     d.String("source"),
		Confidence: confidence,
	}
	if !disp.store.SavePreference(ctx, p) {
		return failf("Could not save preference '%s'", key)
	}
	return successf("Preference saved: %s = %s", key, value)
}

func deleteItemAction(disp *Dispatcher, ctx context.Context, d directive.Directive) (string, Outcome) {
	id, ok := d.Int64("item_id")
	if !ok {
		return failf("Missing item_id for deletion")
	}
	if err := disp.store.DeleteItem(ctx, id); err != nil {
		return failf("Could not delete item %d: %v", id, err)
	}
	return successf("Item deleted (ID: %d)", id)
}

func formatItems(items []memory.Item) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := fmt.Sprintf("- [%d] %s", it.ID, it.Content)
		if len(it.Tags) > 0 {
			line += fmt.Sprintf(" (tags: %s)", strings.Join(it.Tags, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatContacts(contacts []memory.Contact) string {
	lines := make([]string, 0, len(contacts))
	for _, c := range contacts {
		line := fmt.Sprintf("- [%d] %s", c.ID, c.DisplayName)
		if c.Category != "" {
			line += fmt.Sprintf(" (%s)", c.Category)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// decodeInto re-marshals a decoded JSON object into a typed struct.
func decodeInto(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
