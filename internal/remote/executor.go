// Package remote runs diagnostic commands on monitored nodes over ssh.
// The tunnel itself is opaque to the rest of the pipeline: callers get
// raw command output or a classified acquisition error.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	monerrors "github.com/ringwatch/ringwatch/internal/errors"
	"github.com/rs/zerolog/log"
)

// maxOutputBytes bounds captured stdout; ring output for even very
// large clusters stays far below this.
const maxOutputBytes = 4 * 1024 * 1024

// Executor runs a command against one target node and returns its
// stdout. Implementations must honor ctx cancellation and deadlines.
type Executor interface {
	Execute(ctx context.Context, address, command string) (string, error)
}

// SSHExecutor shells out to the system ssh client in batch mode.
type SSHExecutor struct {
	User              string
	IdentityFile      string
	ConnectTimeoutSec int
}

// NewSSHExecutor builds an executor with the given login settings.
func NewSSHExecutor(user, identityFile string, connectTimeoutSec int) *SSHExecutor {
	if connectTimeoutSec <= 0 {
		connectTimeoutSec = 10
	}
	return &SSHExecutor{
		User:              user,
		IdentityFile:      identityFile,
		ConnectTimeoutSec: connectTimeoutSec,
	}
}

// Execute runs command on address and returns its stdout. Failures
// (connect, auth, non-zero exit, deadline) come back as acquisition
// or timeout errors with the stderr tail attached.
func (e *SSHExecutor) Execute(ctx context.Context, address, command string) (string, error) {
	args := e.buildArgs(address, command)

	log.Debug().
		Str("target", address).
		Str("command", command).
		Msg("Executing remote command")

	start := time.Now()
	cmd := exec.CommandContext(ctx, "ssh", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = newLimitedBuffer(&stdout, maxOutputBytes)
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Error().
			Str("target", address).
			Dur("elapsed", elapsed).
			Msg("Remote command timed out")
		return "", monerrors.WrapTimeoutError("run_remote_command", address,
			fmt.Errorf("remote command timed out after %s: %w", elapsed.Round(time.Millisecond), ctxErr))
	}
	if err != nil {
		stderrMsg := strings.TrimSpace(stderr.String())
		log.Error().
			Str("target", address).
			Str("stderr", stderrMsg).
			Err(err).
			Msg("Remote command failed")
		if stderrMsg != "" {
			err = fmt.Errorf("%w (stderr: %s)", err, stderrMsg)
		}
		return "", monerrors.WrapAcquisitionError("run_remote_command", address, err)
	}

	out := stdout.String()
	if int64(stdout.Len()) >= maxOutputBytes {
		return "", monerrors.WrapAcquisitionError("run_remote_command", address,
			fmt.Errorf("%w: stdout reached %d bytes", monerrors.ErrOutputTruncated, maxOutputBytes))
	}

	log.Debug().
		Str("target", address).
		Int("output_bytes", len(out)).
		Dur("elapsed", elapsed).
		Msg("Remote command succeeded")
	return out, nil
}

func (e *SSHExecutor) buildArgs(address, command string) []string {
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=accept-new",
		"-o", fmt.Sprintf("ConnectTimeout=%d", e.ConnectTimeoutSec),
		"-o", "LogLevel=ERROR",
	}
	if e.IdentityFile != "" {
		args = append(args, "-i", e.IdentityFile, "-o", "IdentitiesOnly=yes")
	}
	host := address
	if e.User != "" {
		host = e.User + "@" + address
	}
	return append(args, host, command)
}

// limitedBuffer discards writes past the limit so a misbehaving remote
// command cannot balloon memory. The truncation is detected afterwards
// by comparing the buffer length against the limit.
type limitedBuffer struct {
	buf     *bytes.Buffer
	limit   int64
	written int64
}

func newLimitedBuffer(buf *bytes.Buffer, limit int64) *limitedBuffer {
	return &limitedBuffer{buf: buf, limit: limit}
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remaining := l.limit - l.written
	if remaining <= 0 {
		return n, nil
	}
	if int64(n) > remaining {
		p = p[:remaining]
	}
	written, err := l.buf.Write(p)
	l.written += int64(written)
	if err != nil {
		return written, err
	}
	return n, nil
}
