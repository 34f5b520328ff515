package process

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Result is the captured outcome of one external command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Invoker runs an external command to completion. A non-zero exit yields
// both a Result and an error; a missing binary wraps exec.ErrNotFound.
type Invoker interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecInvoker runs commands on the local machine.
type ExecInvoker struct {
	Dir         string
	Environment []string
	logger      *logrus.Logger
}

func NewExecInvoker() *ExecInvoker {
	return &ExecInvoker{logger: logrus.StandardLogger()}
}

func (i *ExecInvoker) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	logger := i.logger.WithFields(logrus.Fields{
		"command": name,
		"args":    args,
	})
	logger.Debug("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = i.Dir
	if len(i.Environment) > 0 {
		cmd.Env = append(os.Environ(), i.Environment...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode(cmd, err),
	}

	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":     err,
			"exit_code": res.ExitCode,
			"stderr":    stderr.String(),
			"duration":  time.Since(start),
		}).Warn("Command failed")
		if ctx.Err() != nil {
			return res, errors.Wrapf(ctx.Err(), "%s interrupted", name)
		}
		return res, errors.Wrapf(err, "%s failed", name)
	}

	logger.WithField("duration", time.Since(start)).Debug("Command finished")
	return res, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// IsNotFound reports whether err means the binary could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
