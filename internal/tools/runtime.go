package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/errors"
)

type runArgs struct {
	Path string   `json:"path"`
	Args []string `json:"args"`
}

type typeCheckArgs struct {
	Config string `json:"config"`
}

// codeRun is the outcome of running a file with the runtime.
type codeRun struct {
	success bool
	output  string
	errText string
}

func (c *Catalog) runCode(ctx context.Context, env *Env, args runArgs) (codeRun, error) {
	root := env.Root()
	target, err := resolvePath(root, args.Path)
	if err != nil {
		return codeRun{}, err
	}

	cmdArgs := append([]string{"run", target}, args.Args...)
	out, err := runProcess(ctx, env.Log, root, c.opts.RuntimeCommand, cmdArgs...)
	if err != nil {
		return codeRun{}, err
	}

	if out.ExitStatus == 0 {
		output := out.Stdout
		if output == "" {
			output = "Execution completed successfully"
		}
		return codeRun{success: true, output: output}, nil
	}

	errText := out.Stderr
	if errText == "" {
		errText = "Execution failed"
	}
	return codeRun{output: out.Stdout, errText: errText}, nil
}

func (c *Catalog) executeFile(ctx context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[runArgs](raw)
	if err != nil {
		return Result{}, err
	}
	run, err := c.runCode(ctx, env, args)
	if err != nil {
		return Result{}, err
	}

	output := run.output
	if run.errText != "" {
		output += "\nERROR:\n" + run.errText
	}
	return Result{Success: run.success, Output: output, Error: run.errText}, nil
}

func (c *Catalog) runAndDebug(ctx context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[runArgs](raw)
	if err != nil {
		return Result{}, err
	}
	run, err := c.runCode(ctx, env, args)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Success: run.success,
		Output:  fmt.Sprintf("STDOUT:\n%s\nSTDERR:\n%s", run.output, run.errText),
		Error:   run.errText,
	}, nil
}

func (c *Catalog) typeCheck(ctx context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[typeCheckArgs](raw)
	if err != nil {
		return Result{}, err
	}
	root, err := ensureRoot(env.Root())
	if err != nil {
		return Result{}, err
	}

	name := c.opts.TypeCheckCommand[0]
	cmdArgs := append([]string{}, c.opts.TypeCheckCommand[1:]...)
	if args.Config != "" {
		configPath, err := resolvePath(root, args.Config)
		if err != nil {
			return Result{}, err
		}
		cmdArgs = append(cmdArgs, "--config", configPath)
	}
	cmdArgs = append(cmdArgs, ".")

	out, err := runProcess(ctx, env.Log, root, name, cmdArgs...)
	if err != nil {
		return Result{}, err
	}

	res := Result{Success: out.ExitStatus == 0, Output: out.Stdout + out.Stderr}
	if !res.Success {
		res.Error = out.Stderr
		if res.Error == "" {
			res.Error = "Type check failed"
		}
	}
	return res, nil
}

// CheckRuntime verifies that "<command> --version" runs cleanly.
func CheckRuntime(ctx context.Context, log zerolog.Logger, command string) (string, error) {
	out, err := runProcess(ctx, log, "", command, "--version")
	if err != nil {
		return "", errors.NewRuntimeUnavailable(command, err)
	}
	if out.ExitStatus != 0 {
		return "", errors.NewRuntimeUnavailable(command, fmt.Errorf("exit status %d: %s", out.ExitStatus, strings.TrimSpace(out.Stderr)))
	}
	return strings.TrimSpace(out.Stdout), nil
}
