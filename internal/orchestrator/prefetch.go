package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymy770/Clara/internal/memory"
)

// prefetchLimit caps how many records are injected into the prompt.
const prefetchLimit = 10

// readKeywords are the verbs that suggest the user wants to see stored data.
var readKeywords = []string{"show", "search", "list", "find", "what are", "display"}

// domainKinds maps domain keywords in the user text to the item kind to
// pre-fetch. Contacts and preferences are handled separately.
var domainKinds = map[string]memory.Kind{
	"note":     memory.KindNote,
	"todo":     memory.KindTodo,
	"process":  memory.KindProcess,
	"protocol": memory.KindProtocol,
}

// prefetchMemory is the hallucination guard: when the user asks to see
// stored data, the real records are fetched before the model call and
// injected as a system message, so the model cannot invent memory contents
// it was never shown. It is a pure read side-channel and never writes.
func (o *Orchestrator) prefetchMemory(ctx context.Context, userText string) string {
	lower := strings.ToLower(userText)

	if !containsAny(lower, readKeywords) {
		return ""
	}

	var sections []string
	for keyword, kind := range domainKinds {
		if !strings.Contains(lower, keyword) {
			continue
		}
		items, err := o.store.GetItems(ctx, kind, prefetchLimit)
		if err != nil {
			o.logger.Warn("Memory pre-fetch failed", "kind", string(kind), "error", err)
			continue
		}
		sections = append(sections, formatItemSection(string(kind), items))
	}

	if strings.Contains(lower, "contact") {
		contacts, err := o.store.GetAllContacts(ctx, prefetchLimit)
		if err != nil {
			o.logger.Warn("Contact pre-fetch failed", "error", err)
		} else {
			sections = append(sections, formatContactSection(contacts))
		}
	}

	if strings.Contains(lower, "preference") {
		prefs, err := o.store.ListPreferences(ctx)
		if err != nil {
			o.logger.Warn("Preference pre-fetch failed", "error", err)
		} else {
			sections = append(sections, formatPreferenceSection(prefs))
		}
	}

	if len(sections) == 0 {
		return ""
	}
	return "Actual stored memory, fetched just now. Base your answer on this, do not invent entries:\n\n" +
		strings.Join(sections, "\n\n")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func formatItemSection(kind string, items []memory.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("Stored %ss: none.", kind)
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, fmt.Sprintf("Stored %ss (%d most recent):", kind, len(items)))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- [%d] %s", it.ID, it.Content))
	}
	return strings.Join(lines, "\n")
}

func formatContactSection(contacts []memory.Contact) string {
	if len(contacts) == 0 {
		return "Stored contacts: none."
	}
	lines := make([]string, 0, len(contacts)+1)
	lines = append(lines, fmt.Sprintf("Stored contacts (%d):", len(contacts)))
	for _, c := range contacts {
		line := fmt.Sprintf("- [%d] %s", c.ID, c.DisplayName)
		if c.Category != "" {
			line += " (" + c.Category + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatPreferenceSection(prefs []memory.Preference) string {
	if len(prefs) == 0 {
		return "Stored preferences: none."
	}
	lines := make([]string, 0, len(prefs)+1)
	lines = append(lines, fmt.Sprintf("Stored preferences (%d):", len(prefs)))
	for _, p := range prefs {
		lines = append(lines, fmt.Sprintf("- %s = %s", p.Key, p.Value))
	}
	return strings.Join(lines, "\n")
}
