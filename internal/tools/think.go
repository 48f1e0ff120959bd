package tools

import (
	"context"
	"encoding/json"
)

type thinkArgs struct {
	Thought string `json:"thought"`
}

// think echoes the thought back. It gives the model a scratchpad step.
func (c *Catalog) think(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[thinkArgs](raw)
	if err != nil {
		return Result{}, err
	}
	env.Log.Debug().Str("thought", args.Thought).Msg("think")
	return okResult(args.Thought)
}
