package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate-ai/task-assistant/internal/agent"
	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
)

// scriptedClient replays a fixed sequence of completions and records every
// request it sees.
type scriptedClient struct {
	script   []*llm.CompletionResponse
	calls    int
	requests []*llm.CompletionRequest
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.calls++
	c.requests = append(c.requests, req)
	i := c.calls - 1
	if i >= len(c.script) {
		i = len(c.script) - 1
	}
	return c.script[i], nil
}

func (c *scriptedClient) Name() string     { return "scripted" }
func (c *scriptedClient) Models() []string { return []string{"scripted-model"} }

func newChatStack(t *testing.T, st *store.Store, client llm.Client) (*ChatService, *TaskService) {
	t.Helper()
	log := testLogger()
	taskSvc := NewTaskService(st, log)
	convSvc := NewConversationService(st, log)
	dispatcher := agent.NewDispatcher(taskSvc, log)
	assembler := agent.NewContextAssembler(convSvc, agent.AssemblerConfig{Window: 20})
	ag := agent.New(client, dispatcher, agent.Config{Model: "scripted-model"}, log)
	return NewChatService(convSvc, assembler, ag, nil, log), taskSvc
}

func TestHandleMessageNewConversation(t *testing.T) {
	st := newTestStore(t)
	client := &scriptedClient{script: []*llm.CompletionResponse{
		{Content: "Hello! How can I help?"},
	}}
	chat, _ := newChatStack(t, st, client)
	ctx := context.Background()

	resp, err := chat.HandleMessage(ctx, "alice", &model.ChatRequest{
		Message: "hi there",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "Hello! How can I help?", resp.Response)

	// Both turns are durable.
	msgs, err := st.RecentMessages(ctx, resp.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)

	// Conversation is titled from the first message.
	conv, err := st.GetConversation(ctx, "alice", resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "hi there", conv.Title)
}

func TestHandleMessageValidation(t *testing.T) {
	st := newTestStore(t)
	chat, _ := newChatStack(t, st, &scriptedClient{script: []*llm.CompletionResponse{{Content: "ok"}}})
	ctx := context.Background()

	var verr model.ValidationError

	_, err := chat.HandleMessage(ctx, "alice", &model.ChatRequest{Message: "   "})
	assert.ErrorAs(t, err, &verr)

	_, err = chat.HandleMessage(ctx, "alice", &model.ChatRequest{
		Message: strings.Repeat("x", model.MaxChatMessageLength+1),
	})
	assert.ErrorAs(t, err, &verr)
}

func TestHandleMessageForeignConversation(t *testing.T) {
	st := newTestStore(t)
	client := &scriptedClient{script: []*llm.CompletionResponse{{Content: "ok"}}}
	chat, _ := newChatStack(t, st, client)
	ctx := context.Background()

	resp, err := chat.HandleMessage(ctx, "alice", &model.ChatRequest{Message: "mine"})
	require.NoError(t, err)

	_, err = chat.HandleMessage(ctx, "bob", &model.ChatRequest{
		ConversationID: resp.ConversationID,
		Message:        "let me in",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleMessageToolFlowCreatesTask(t *testing.T) {
	st := newTestStore(t)
	client := &scriptedClient{script: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      agent.ToolCreateTask,
			Arguments: json.RawMessage(`{"title":"buy milk","priority":"high"}`),
		}}},
		{Content: "Added buy milk to your list."},
	}}
	chat, taskSvc := newChatStack(t, st, client)
	ctx := context.Background()

	resp, err := chat.HandleMessage(ctx, "alice", &model.ChatRequest{
		Message: "remind me to buy milk, it's important",
	})
	require.NoError(t, err)
	assert.Equal(t, "Added buy milk to your list.", resp.Response)

	tasks, err := taskSvc.ListTasks(ctx, "alice", model.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)

	// Only user and assistant turns are persisted; the tool exchange is
	// transient model context.
	msgs, err := st.RecentMessages(ctx, resp.ConversationID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestConversationSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.db")
	ctx := context.Background()

	st1, err := store.Open(path)
	require.NoError(t, err)
	client1 := &scriptedClient{script: []*llm.CompletionResponse{
		{Content: "Noted: you prefer morning workouts."},
	}}
	chat1, _ := newChatStack(t, st1, client1)

	resp, err := chat1.HandleMessage(ctx, "alice", &model.ChatRequest{
		Message: "I prefer morning workouts",
	})
	require.NoError(t, err)
	require.NoError(t, st1.Close())

	// A brand new process: fresh store handle, fresh services, nothing
	// shared but the database file.
	st2, err := store.Open(path)
	require.NoError(t, err)
	defer st2.Close()
	client2 := &scriptedClient{script: []*llm.CompletionResponse{
		{Content: "You told me you prefer morning workouts."},
	}}
	chat2, _ := newChatStack(t, st2, client2)

	resp2, err := chat2.HandleMessage(ctx, "alice", &model.ChatRequest{
		ConversationID: resp.ConversationID,
		Message:        "what do I prefer?",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.ConversationID, resp2.ConversationID)

	// The model context reconstructed after the restart includes the
	// pre-restart turns.
	require.Len(t, client2.requests, 1)
	contents := make([]string, 0)
	for _, m := range client2.requests[0].Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "I prefer morning workouts")
	assert.Contains(t, contents, "Noted: you prefer morning workouts.")
	assert.Contains(t, contents, "what do I prefer?")

	msgs, err := st2.RecentMessages(ctx, resp.ConversationID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}
