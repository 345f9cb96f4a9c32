package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

func TestFactsInput(t *testing.T) {
	input := FactsInput([]memory.Message{
		{Role: "user", Content: "I moved to Lisbon"},
		{Role: "assistant", Content: "Nice, how do you like it?"},
	})

	assert.Contains(t, input, "user: I moved to Lisbon")
	assert.Contains(t, input, "assistant: Nice, how do you like it?")
}

func TestReconcileInput(t *testing.T) {
	existing := []*memory.Record{
		memory.NewRecord("user1", "I live in Porto", nil),
		memory.NewRecord("user1", "I drink tea", nil),
	}
	input := ReconcileInput([]string{"User lives in Lisbon"}, existing)

	assert.Contains(t, input, "0: I live in Porto")
	assert.Contains(t, input, "1: I drink tea")
	assert.Contains(t, input, "- User lives in Lisbon")
}

func TestReconcileInputNoExisting(t *testing.T) {
	input := ReconcileInput([]string{"User lives in Lisbon"}, nil)
	assert.Contains(t, input, "(none)")
}

func TestParseFacts(t *testing.T) {
	facts, err := ParseFacts(`{"facts": ["User lives in Lisbon", "User plays violin"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"User lives in Lisbon", "User plays violin"}, facts)
}

func TestParseFactsEmpty(t *testing.T) {
	facts, err := ParseFacts(`{"facts": []}`)
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestParseFactsFenced(t *testing.T) {
	facts, err := ParseFacts("```json\n{\"facts\": [\"User lives in Lisbon\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"User lives in Lisbon"}, facts)
}

func TestParseFactsInvalid(t *testing.T) {
	_, err := ParseFacts("I could not find any facts, sorry!")
	assert.Error(t, err)
}

func TestParseActions(t *testing.T) {
	existing := []*memory.Record{
		memory.NewRecord("user1", "I live in Porto", nil),
		memory.NewRecord("user1", "I drink tea", nil),
	}
	raw := `{"memory": [
		{"event": "ADD", "text": "User plays violin"},
		{"event": "UPDATE", "id": "0", "text": "I live in Lisbon"},
		{"event": "DELETE", "id": "1"},
		{"event": "NONE", "text": "User drinks coffee"}
	]}`

	actions, err := ParseActions(raw, existing)
	require.NoError(t, err)
	require.Len(t, actions, 3, "NONE entries are dropped")

	assert.Equal(t, memory.EventAdd, actions[0].Event)
	assert.Equal(t, "User plays violin", actions[0].Content)

	assert.Equal(t, memory.EventUpdate, actions[1].Event)
	assert.Equal(t, existing[0].ID, actions[1].ID)
	assert.Equal(t, "I live in Lisbon", actions[1].Content)
	assert.Equal(t, "I live in Porto", actions[1].OldContent)

	assert.Equal(t, memory.EventDelete, actions[2].Event)
	assert.Equal(t, existing[1].ID, actions[2].ID)
	assert.Equal(t, "I drink tea", actions[2].OldContent)
}

func TestParseActionsDropsBadReferences(t *testing.T) {
	existing := []*memory.Record{
		memory.NewRecord("user1", "I live in Porto", nil),
	}
	raw := `{"memory": [
		{"event": "UPDATE", "id": "7", "text": "out of range"},
		{"event": "DELETE", "id": "not-a-number"},
		{"event": "ADD", "text": ""},
		{"event": "add", "text": "lowercase events still count"}
	]}`

	actions, err := ParseActions(raw, existing)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, memory.EventAdd, actions[0].Event)
	assert.Equal(t, "lowercase events still count", actions[0].Content)
}

func TestParseActionsInvalid(t *testing.T) {
	_, err := ParseActions("no changes needed", nil)
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"facts": []}`, `{"facts": []}`},
		{"```json\n{\"facts\": []}\n```", `{"facts": []}`},
		{"```\n{\"facts\": []}\n```", `{"facts": []}`},
		{"  {\"facts\": []}  ", `{"facts": []}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stripFences(tc.in))
	}
}
