// Package agent runs one conversation turn: it hands the user's message and the
// tool catalog to the provider, executes the tools the model asks for, and feeds
// the results back until the model answers or the step limit is hit.
//
// No history is kept between turns.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/llm"
	"github.com/tryandromeda/copilot/internal/tools"
)

// DefaultMaxSteps is the hard cap on provider rounds per turn. A configured
// MaxSteps may lower it but never raise it.
const DefaultMaxSteps = 10

// Config holds the provider call parameters.
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int
	MaxSteps    int
}

// Reply is the outcome of one turn.
type Reply struct {
	Content string    `json:"content"`
	Usage   llm.Usage `json:"usage"`
	Steps   int       `json:"-"`
}

// Agent binds a provider, a tool catalog and a tool environment.
// Chat may be called concurrently; each call is independent.
type Agent struct {
	provider llm.Provider
	catalog  *tools.Catalog
	env      *tools.Env
	cfg      Config
	log      zerolog.Logger
}

func New(provider llm.Provider, catalog *tools.Catalog, env *tools.Env, cfg Config, log zerolog.Logger) *Agent {
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}
	if cfg.MaxSteps <= 0 || cfg.MaxSteps > DefaultMaxSteps {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if env == nil {
		env = &tools.Env{Log: log}
	}
	return &Agent{provider: provider, catalog: catalog, env: env, cfg: cfg, log: log}
}

// WorkspaceDir is the directory tool calls currently resolve against.
func (a *Agent) WorkspaceDir() string {
	return a.env.Root()
}

// Chat runs one turn. Tool failures go back to the model as tool results;
// only provider failures end the turn with an error, classified as
// CREDENTIAL or PROVIDER.
func (a *Agent) Chat(ctx context.Context, message string) (Reply, error) {
	defs := a.catalog.Tools()
	system, err := SystemPrompt(a.WorkspaceDir(), defs)
	if err != nil {
		return Reply{}, errors.NewInternal(fmt.Errorf("render system prompt: %w", err))
	}
	specs, err := toolSpecs(defs)
	if err != nil {
		return Reply{}, errors.NewInternal(err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: message},
	}

	var reply Reply
	for reply.Steps < a.cfg.MaxSteps {
		resp, err := a.provider.Complete(ctx, llm.Request{
			Model:       a.cfg.Model,
			Messages:    messages,
			Tools:       specs,
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		})
		if err != nil {
			a.log.Error().Err(err).Str("session", a.env.SessionID).Int("step", reply.Steps).Msg("provider call failed")
			if llm.IsCredentialError(err) {
				return Reply{}, errors.NewCredential(err)
			}
			return Reply{}, errors.NewProvider(err)
		}
		reply.Steps++
		reply.Usage.Add(resp.Usage)
		reply.Content = resp.Message.Content

		if len(resp.Message.ToolCalls) == 0 {
			return reply, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Message.Content,
			ToolCalls: resp.Message.ToolCalls,
		})
		for _, call := range resp.Message.ToolCalls {
			res := a.catalog.Execute(ctx, a.env, call.Name, call.Arguments)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    res.JSON(),
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	a.log.Warn().Str("session", a.env.SessionID).Int("max_steps", a.cfg.MaxSteps).Msg("step limit reached")
	return reply, nil
}

func toolSpecs(defs []mcp.Tool) ([]llm.ToolSpec, error) {
	specs := make([]llm.ToolSpec, 0, len(defs))
	for _, def := range defs {
		params, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", def.Name, err)
		}
		specs = append(specs, llm.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}
	return specs, nil
}
