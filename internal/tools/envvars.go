package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

type keyArgs struct {
	Key string `json:"key"`
}

type keyValueArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Environment tools act on the copilot process itself, so values set here are
// inherited by every subprocess the other tools spawn.

func (c *Catalog) getEnv(_ context.Context, _ *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[keyArgs](raw)
	if err != nil {
		return Result{}, err
	}
	return okResult(os.Getenv(args.Key))
}

func (c *Catalog) setEnv(_ context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[keyValueArgs](raw)
	if err != nil {
		return Result{}, err
	}
	if err := os.Setenv(args.Key, args.Value); err != nil {
		return Result{}, err
	}
	env.Log.Info().Str("key", args.Key).Msg("environment variable set")
	return okResult(fmt.Sprintf("Set %s", args.Key))
}

func (c *Catalog) removeEnv(_ context.Context, _ *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[keyArgs](raw)
	if err != nil {
		return Result{}, err
	}
	if err := os.Unsetenv(args.Key); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("Removed %s", args.Key))
}

func (c *Catalog) listEnv(_ context.Context, _ *Env, _ json.RawMessage) (Result, error) {
	vars := os.Environ()
	sort.Strings(vars)
	return okResult(strings.Join(vars, "\n"))
}
