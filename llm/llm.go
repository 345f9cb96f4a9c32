// Package llm holds the prompts and response parsing shared by the
// memory.Extractor implementations in the subpackages. The prompts ask
// for strict JSON; parsing tolerates fenced code blocks since smaller
// models tend to wrap their output anyway.
package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// FactPrompt is the system prompt for fact extraction.
const FactPrompt = `You are a personal information organizer. Extract facts worth remembering long-term from the conversation below: preferences, personal details, plans, relationships, and important context.

Rules:
- Record facts as short, self-contained statements.
- Ignore small talk and anything with no long-term value.
- Respond with JSON only, in the form {"facts": ["...", "..."]}.
- If nothing is worth remembering, respond {"facts": []}.`

// ReconcilePrompt is the system prompt for memory reconciliation.
const ReconcilePrompt = `You are a memory manager. Compare newly extracted facts with the existing memories listed below and decide, for each fact, one of:

- ADD: the fact is new information.
- UPDATE: the fact refines or corrects an existing memory. Reference the memory by its id and give the rewritten text.
- DELETE: the fact contradicts an existing memory that must be removed. Reference the memory by its id.
- NONE: the fact is already covered.

Respond with JSON only, in the form:
{"memory": [{"event": "ADD", "text": "..."}, {"event": "UPDATE", "id": "0", "text": "..."}, {"event": "DELETE", "id": "1"}]}`

// FactsInput renders messages for the fact extraction prompt.
func FactsInput(msgs []memory.Message) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, msg := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

// ReconcileInput renders facts and existing memories for the
// reconciliation prompt. Existing memories are numbered; ParseActions
// maps the numbers back to record IDs.
func ReconcileInput(facts []string, existing []*memory.Record) string {
	var b strings.Builder
	b.WriteString("Existing memories:\n")
	if len(existing) == 0 {
		b.WriteString("(none)\n")
	}
	for i, rec := range existing {
		fmt.Fprintf(&b, "%d: %s\n", i, rec.Content)
	}
	b.WriteString("\nNew facts:\n")
	for _, fact := range facts {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	return b.String()
}

// ParseFacts decodes a fact extraction response.
func ParseFacts(raw string) ([]string, error) {
	var out struct {
		Facts []string `json:"facts"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parse facts response: %w", err)
	}
	return out.Facts, nil
}

// ParseActions decodes a reconciliation response, resolving numbered
// memory references against existing. Actions referencing unknown
// numbers are dropped.
func ParseActions(raw string, existing []*memory.Record) ([]memory.Action, error) {
	var out struct {
		Memory []struct {
			Event     string `json:"event"`
			ID        string `json:"id"`
			Text      string `json:"text"`
			OldMemory string `json:"old_memory"`
		} `json:"memory"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parse reconcile response: %w", err)
	}

	var actions []memory.Action
	for _, item := range out.Memory {
		event := memory.Event(strings.ToUpper(strings.TrimSpace(item.Event)))
		switch event {
		case memory.EventAdd:
			if item.Text == "" {
				continue
			}
			actions = append(actions, memory.Action{Event: event, Content: item.Text})
		case memory.EventUpdate, memory.EventDelete:
			idx, err := strconv.Atoi(item.ID)
			if err != nil || idx < 0 || idx >= len(existing) {
				continue
			}
			actions = append(actions, memory.Action{
				Event:      event,
				ID:         existing[idx].ID,
				Content:    item.Text,
				OldContent: existing[idx].Content,
			})
		case memory.EventNone:
			// Explicit no-op from the model
		}
	}
	return actions, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
