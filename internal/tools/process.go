package tools

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
)

// processOutput is the captured result of a finished subprocess.
type processOutput struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// runProcess runs name with args in dir, capturing stdout and stderr separately.
// A non-zero exit is reported through ExitStatus, not as an error; the error
// return is reserved for processes that could not be started.
func runProcess(ctx context.Context, log zerolog.Logger, dir, name string, args ...string) (processOutput, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("dir", dir).Str("command", shellescape.QuoteCommand(append([]string{name}, args...))).Msg("running process")

	err := cmd.Run()

	exitStatus := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return processOutput{}, err
		}
		exitStatus = exitErr.ExitCode()
	}

	return processOutput{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitStatus: exitStatus,
	}, nil
}
