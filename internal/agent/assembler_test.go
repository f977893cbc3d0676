package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
)

// fakeHistory serves a canned conversation for one owner.
type fakeHistory struct {
	ownerID   string
	messages  []model.Message
	lastLimit int
}

func (f *fakeHistory) Conversation(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error) {
	if ownerID != f.ownerID {
		return nil, store.ErrNotFound
	}
	return &model.Conversation{ID: conversationID, UserID: ownerID, Active: true}, nil
}

func (f *fakeHistory) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	f.lastLimit = limit
	if len(f.messages) <= limit {
		return f.messages, nil
	}
	return f.messages[len(f.messages)-limit:], nil
}

func makeHistory(owner string, n int) *fakeHistory {
	h := &fakeHistory{ownerID: owner}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		h.messages = append(h.messages, model.Message{
			ID:        fmt.Sprintf("m%d", i),
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return h
}

func TestAssembleBoundsWindow(t *testing.T) {
	history := makeHistory("alice", 100)
	a := NewContextAssembler(history, AssemblerConfig{Window: 20})

	msgs, err := a.Assemble(context.Background(), "alice", "conv-1")
	require.NoError(t, err)

	assert.Equal(t, 20, history.lastLimit)
	// System prompt plus the 20 most recent turns.
	require.Len(t, msgs, 21)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "message 80", msgs[1].Content)
	assert.Equal(t, "message 99", msgs[20].Content)
}

func TestAssembleChronologicalOrder(t *testing.T) {
	history := makeHistory("alice", 6)
	a := NewContextAssembler(history, AssemblerConfig{Window: 20})

	msgs, err := a.Assemble(context.Background(), "alice", "conv-1")
	require.NoError(t, err)

	require.Len(t, msgs, 7)
	for i := 0; i < 6; i++ {
		assert.Equal(t, fmt.Sprintf("message %d", i), msgs[i+1].Content)
	}
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
}

func TestAssembleRejectsForeignConversation(t *testing.T) {
	history := makeHistory("alice", 4)
	a := NewContextAssembler(history, AssemblerConfig{Window: 20})

	_, err := a.Assemble(context.Background(), "bob", "conv-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAssembleSkipsNonChatRoles(t *testing.T) {
	history := makeHistory("alice", 2)
	history.messages = append(history.messages, model.Message{
		ID: "m-tool", Role: model.RoleTool, Content: `{"success":true}`,
	})
	a := NewContextAssembler(history, AssemblerConfig{Window: 20})

	msgs, err := a.Assemble(context.Background(), "alice", "conv-1")
	require.NoError(t, err)

	require.Len(t, msgs, 3)
	for _, m := range msgs[1:] {
		assert.Contains(t, []string{"user", "assistant"}, m.Role)
	}
}

func TestAssembleSummarizesOlderMessages(t *testing.T) {
	history := makeHistory("alice", 30)
	a := NewContextAssembler(history, AssemblerConfig{
		Window:             20,
		Summarize:          true,
		SummarizeThreshold: 40,
	})

	msgs, err := a.Assemble(context.Background(), "alice", "conv-1")
	require.NoError(t, err)

	// Fetches up to the threshold so there is something to summarize.
	assert.Equal(t, 40, history.lastLimit)

	// Prompt, summary note, then the 20-message window.
	require.Len(t, msgs, 22)
	assert.Equal(t, "system", msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Summary of 10 earlier messages"))
	assert.Equal(t, "message 10", msgs[2].Content)
	assert.Equal(t, "message 29", msgs[21].Content)
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	older := []model.Message{{
		Role:    model.RoleUser,
		Content: strings.Repeat("é", 300),
	}}

	summary := summarize(older)

	assert.True(t, utf8.ValidString(summary))
	assert.Contains(t, summary, strings.Repeat("é", 200)+"…")
	assert.NotContains(t, summary, strings.Repeat("é", 201))
}

func TestAssembleDefaultWindow(t *testing.T) {
	history := makeHistory("alice", 5)
	a := NewContextAssembler(history, AssemblerConfig{})

	_, err := a.Assemble(context.Background(), "alice", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 20, history.lastLimit)
}
