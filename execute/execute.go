// Package execute runs external status tools (lsblk, hdparm, nvme) and captures their output.
package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"zerocheck/logger"
)

// DefaultTimeout bounds a single tool invocation when none is configured.
const DefaultTimeout = 30 * time.Second

// Runner runs a command once and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// Exec runs commands with os/exec.
type Exec struct {
	Timeout time.Duration
}

// Run looks the tool up on PATH and runs it once. A non-zero exit is an error; whatever the
// tool wrote to stderr is attached to it.
func (e Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log := logger.FromContext(ctx)
	cmdStr := name + " " + strings.Join(args, " ")

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "%s", name), "install the tool or set its path in the configuration")
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(rc, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	log.Debug().Str("command", cmdStr).Msg("running")
	if err := cmd.Run(); err != nil {
		log.Debug().Err(err).Str("command", cmdStr).Str("stderr", strings.TrimSpace(stderr.String())).Msg("command failed")
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), errors.Wrapf(err, "%s: %s", cmdStr, msg)
		}
		return stdout.Bytes(), errors.Wrapf(err, "%s", cmdStr)
	}
	log.Debug().Str("command", cmdStr).Dur("took", time.Since(start)).Int("bytes", stdout.Len()).Msg("command succeeded")
	return stdout.Bytes(), nil
}
