package migrations

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"

	apperrors "billing-tools/internal/common/errors"
	"billing-tools/internal/common/logger"
)

// Invoker runs the checksum tool as a child process over a list of files.
type Invoker struct {
	Tool     string
	ToolArgs []string // prepended to the file list
	Dir      string
	Stdout   io.Writer
	Stderr   io.Writer
	Env      []string

	logger logger.Logger
}

func NewInvoker(tool, dir string, stdout, stderr io.Writer, log logger.Logger) *Invoker {
	return &Invoker{
		Tool:   tool,
		Dir:    dir,
		Stdout: stdout,
		Stderr: stderr,
		logger: log.WithFields(map[string]interface{}{"tool": tool}),
	}
}

// Run forwards files to the tool and returns its exit code. An error is only
// returned when the tool could not be started at all.
func (i *Invoker) Run(ctx context.Context, files []string) (int, error) {
	args := make([]string, 0, len(i.ToolArgs)+len(files))
	args = append(args, i.ToolArgs...)
	args = append(args, files...)

	tool, err := resolveTool(i.Tool)
	if err != nil {
		return -1, apperrors.NewChecksumToolFailedError(i.Tool, err)
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = i.Dir
	cmd.Stdout = i.Stdout
	cmd.Stderr = i.Stderr
	if len(i.Env) > 0 {
		cmd.Env = i.Env
	}

	i.logger.Debug("invoking checksum tool", map[string]interface{}{
		"files": len(files),
		"dir":   i.Dir,
	})

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		i.logger.Warn("checksum tool exited with non-zero status", map[string]interface{}{
			"exitCode": code,
		})
		return code, nil
	}
	return -1, apperrors.NewChecksumToolFailedError(i.Tool, err)
}

// resolveTool resolves tool against the caller's working directory; the child
// itself runs in the scan root.
func resolveTool(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}
