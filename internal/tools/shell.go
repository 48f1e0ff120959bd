package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

type shellArgs struct {
	Command string `json:"command"`
}

// shellCommand picks the shell from SHELL and builds its argument list.
// PowerShell takes -Command, everything else -c.
func shellCommand(command string) (string, []string) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		if runtime.GOOS == "windows" {
			shell = "pwsh.exe"
		} else {
			shell = "sh"
		}
	}

	base := strings.ToLower(filepath.Base(shell))
	if strings.Contains(base, "pwsh") || strings.Contains(base, "powershell") {
		return shell, []string{"-Command", command}
	}
	return shell, []string{"-c", command}
}

func (c *Catalog) runShell(ctx context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[shellArgs](raw)
	if err != nil {
		return Result{}, err
	}

	root, err := ensureRoot(env.Root())
	if err != nil {
		return Result{}, err
	}

	shell, argv := shellCommand(args.Command)
	out, err := runProcess(ctx, env.Log, root, shell, argv...)
	if err != nil {
		return Result{}, err
	}

	if out.ExitStatus == 0 {
		return okResult(out.Stdout)
	}
	errText := out.Stderr
	if errText == "" {
		errText = "Command failed"
	}
	return Result{Output: out.Stdout, Error: errText}, nil
}
