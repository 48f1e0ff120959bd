package agent

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/llm"
	"github.com/tryandromeda/copilot/internal/tools"
)

// scriptedProvider replays canned responses and records every request.
type scriptedProvider struct {
	responses []llm.Response
	err       error
	requests  []llm.Request
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return llm.Response{}, p.err
	}
	if len(p.requests) > len(p.responses) {
		return p.responses[len(p.responses)-1], nil
	}
	return p.responses[len(p.requests)-1], nil
}

func toolCall(id, name, args string) llm.Response {
	return llm.Response{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}},
		},
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}
}

func final(text string) llm.Response {
	return llm.Response{
		Message: llm.Message{Role: llm.RoleAssistant, Content: text},
		Usage:   llm.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28},
	}
}

func newTestAgent(t *testing.T, p llm.Provider, cfg Config) (*Agent, string) {
	t.Helper()
	root := t.TempDir()
	env := &tools.Env{DefaultRoot: root, SessionID: "test", Log: zerolog.Nop()}
	return New(p, tools.NewCatalog(tools.Options{}), env, cfg, zerolog.Nop()), root
}

func toolResult(t *testing.T, msg llm.Message) tools.Result {
	t.Helper()
	require.Equal(t, llm.RoleTool, msg.Role)
	var res tools.Result
	require.NoError(t, json.Unmarshal([]byte(msg.Content), &res))
	return res
}

func TestChat_PlainAnswer(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{final("Hello!")}}
	a, root := newTestAgent(t, p, Config{Temperature: 0.7, MaxTokens: 2000})

	reply, err := a.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply.Content)
	assert.Equal(t, 1, reply.Steps)
	assert.Equal(t, llm.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28}, reply.Usage)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "gpt-4", req.Model)
	assert.Equal(t, float32(0.7), req.Temperature)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.Len(t, req.Tools, 17)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Current workspace directory: "+root)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi"}, req.Messages[1])
}

func TestChat_ExecutesToolsAndSumsUsage(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		toolCall("c1", "writeFile", `{"path":"hello.ts","content":"console.log('hi')"}`),
		toolCall("c2", "readFile", `{"path":"hello.ts"}`),
		final("Done."),
	}}
	a, root := newTestAgent(t, p, Config{})

	reply, err := a.Chat(context.Background(), "write a hello file")
	require.NoError(t, err)
	assert.Equal(t, "Done.", reply.Content)
	assert.Equal(t, 3, reply.Steps)
	assert.Equal(t, llm.Usage{PromptTokens: 40, CompletionTokens: 12, TotalTokens: 52}, reply.Usage)

	data, err := os.ReadFile(filepath.Join(root, "hello.ts"))
	require.NoError(t, err)
	assert.Equal(t, "console.log('hi')", string(data))

	last := p.requests[2].Messages
	require.Len(t, last, 6)
	assert.Equal(t, llm.RoleAssistant, last[2].Role)
	assert.Equal(t, "c1", last[3].ToolCallID)
	assert.True(t, toolResult(t, last[3]).Success)
	read := toolResult(t, last[5])
	assert.True(t, read.Success)
	assert.Equal(t, "console.log('hi')", read.Output)
}

func TestChat_FailingToolDoesNotAbortTurn(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		toolCall("c1", "readFile", `{"path":"missing.ts"}`),
		toolCall("c2", "writeFile", `{"path":"../escape.ts","content":"x"}`),
		toolCall("c3", "noSuchTool", `{}`),
		toolCall("c4", "writeFile", `{"path":`),
		final("I could not read it."),
	}}
	a, _ := newTestAgent(t, p, Config{})

	reply, err := a.Chat(context.Background(), "read missing.ts")
	require.NoError(t, err)
	assert.Equal(t, "I could not read it.", reply.Content)

	msgs := p.requests[4].Messages
	results := make([]tools.Result, 0, 4)
	for _, m := range msgs {
		if m.Role == llm.RoleTool {
			results = append(results, toolResult(t, m))
		}
	}
	require.Len(t, results, 4)
	for _, res := range results {
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	}
	assert.True(t, strings.HasPrefix(results[0].Error, "Failed to execute read operation: "))
	assert.Contains(t, results[1].Error, "outside the workspace")
	assert.Contains(t, results[2].Error, "unknown tool")
	assert.Contains(t, results[3].Error, "Invalid arguments for writeFile")
}

func TestChat_MultipleToolCallsInOneRound(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		{Message: llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "a", Name: "writeFile", Arguments: `{"path":"a.ts","content":"1"}`},
			{ID: "b", Name: "listFiles", Arguments: `{}`},
		}}},
		final("ok"),
	}}
	a, _ := newTestAgent(t, p, Config{})

	_, err := a.Chat(context.Background(), "go")
	require.NoError(t, err)

	msgs := p.requests[1].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "a", msgs[3].ToolCallID)
	assert.Equal(t, "b", msgs[4].ToolCallID)
	// Sequential: the listing sees the file written before it.
	assert.Equal(t, "a.ts", toolResult(t, msgs[4]).Output)
}

func TestChat_StepLimit(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		toolCall("loop", "think", `{"thought":"again"}`),
	}}
	a, _ := newTestAgent(t, p, Config{MaxSteps: 3})

	reply, err := a.Chat(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, 3, reply.Steps)
	assert.Len(t, p.requests, 3)
	assert.Equal(t, 36, reply.Usage.TotalTokens)
}

func TestChat_DefaultStepLimit(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		toolCall("loop", "think", `{"thought":"again"}`),
	}}
	a, _ := newTestAgent(t, p, Config{})

	_, err := a.Chat(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Len(t, p.requests, DefaultMaxSteps)
}

func TestChat_StepLimitCannotBeRaised(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		toolCall("loop", "think", `{"thought":"again"}`),
	}}
	a, _ := newTestAgent(t, p, Config{MaxSteps: 50})

	reply, err := a.Chat(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSteps, reply.Steps)
	assert.Len(t, p.requests, DefaultMaxSteps)
}

func TestChat_CredentialError(t *testing.T) {
	p := &scriptedProvider{err: stderrors.New("Incorrect API key provided: sk-xx")}
	a, _ := newTestAgent(t, p, Config{})

	_, err := a.Chat(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCredential))
}

func TestChat_ProviderError(t *testing.T) {
	p := &scriptedProvider{err: stderrors.New("connection reset by peer")}
	a, _ := newTestAgent(t, p, Config{})

	_, err := a.Chat(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProvider))
	assert.Contains(t, err.Error(), "failed to generate AI response")
}

func TestChat_UsesCurrentWorkspace(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{final("ok")}}
	a, _ := newTestAgent(t, p, Config{})
	current := t.TempDir()
	a.env.Workspaces = fixedWorkspace(current)

	_, err := a.Chat(context.Background(), "where am I")
	require.NoError(t, err)
	assert.Contains(t, p.requests[0].Messages[0].Content, "Current workspace directory: "+current)
}

type fixedWorkspace string

func (f fixedWorkspace) CurrentPath(string) string { return string(f) }

func TestSystemPrompt_ListsTools(t *testing.T) {
	c := tools.NewCatalog(tools.Options{Disabled: []string{"runShell"}})
	prompt, err := SystemPrompt("/tmp/ws & co", c.Tools())
	require.NoError(t, err)

	assert.Contains(t, prompt, "- writeFile - Write content to a file in the workspace")
	assert.NotContains(t, prompt, "runShell")
	assert.Contains(t, prompt, "Current workspace directory: /tmp/ws & co")
	assert.Contains(t, prompt, `\n for newlines`)
}

func TestDemoReply(t *testing.T) {
	web := DemoReply(DemoForWeb)
	assert.Contains(t, web.Content, "**Demo Mode**")
	assert.Contains(t, web.Content, "test the frontend.")
	assert.Equal(t, llm.Usage{PromptTokens: 50, CompletionTokens: 100, TotalTokens: 150}, web.Usage)

	term := DemoReply(DemoForTerminal)
	assert.Contains(t, term.Content, "test the terminal interface.")
}
