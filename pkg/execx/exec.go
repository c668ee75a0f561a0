package execx

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrTimeout = errors.New("command timed out")

	// Unredacted passes command output through unchanged.
	Unredacted = Redact(nil)
)

// CmdError describes a failed command invocation.
type CmdError struct {
	Cause  error
	Args   string
	Stderr string
}

func (ce *CmdError) Error() string {
	res := fmt.Sprintf("`%v` failed: %v", ce.Args, ce.Cause)
	if ce.Stderr != "" {
		res = fmt.Sprintf("%s: %s", res, ce.Stderr)
	}

	return res
}

func (ce *CmdError) Unwrap() error {
	return ce.Cause
}

func newCmdError(args string, cause error, stderr string) *CmdError {
	return &CmdError{Args: args, Cause: cause, Stderr: stderr}
}

// CmdOpts configures a command invocation.
type CmdOpts struct {
	// Redactor redacts tokens from logged output.
	Redactor func(text string) string
	// Timeout determines how long to wait for the command to exit.
	// Zero means no timeout.
	Timeout time.Duration
	// SkipErrorLogging defines whether to skip logging of execution
	// errors (rc > 0).
	SkipErrorLogging bool
	// CaptureStderr defines whether to capture stderr in addition to
	// stdout.
	CaptureStderr bool
}

// DefaultCmdOpts are the options applied where a field is unset.
var DefaultCmdOpts = CmdOpts{
	Redactor: Unredacted,
}

// Redact returns a redactor that masks every occurrence of the given
// items in logged text.
func Redact(items []string) func(text string) string {
	return func(text string) string {
		for _, item := range items {
			if item == "" {
				continue
			}

			text = strings.ReplaceAll(text, item, "******")
		}

		return text
	}
}

// Runner runs external commands. Builders take a Runner so tests can
// substitute a fake and never shell out.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) (string, error)
}

// LocalRunner runs commands on the local host via os/exec.
type LocalRunner struct {
	Opts CmdOpts
}

// NewLocalRunner creates a [LocalRunner] with the given options.
func NewLocalRunner(opts CmdOpts) *LocalRunner {
	return &LocalRunner{Opts: opts}
}

func (r *LocalRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) (string, error) {
	runCtx := ctx

	opts := r.Opts
	if opts.Timeout != 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeoutCause(ctx, opts.Timeout,
			fmt.Errorf("%w after %v", ErrTimeout, opts.Timeout))
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = dir

	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	return RunCommandExt(runCtx, cmd, opts)
}

// randString returns a pseudo-random alpha-numeric string of a given
// length, used to correlate log lines of one invocation.
func randString(n int) (string, error) {
	b := make([]byte, n/2+1) // one extra letter to discard
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(b)[0:n], nil
}

// RunCommandExt runs a prepared command, logging the invocation and its
// output, and returns stdout (plus stderr when CaptureStderr is set).
// Failures are returned as a [*CmdError] carrying redacted stderr.
func RunCommandExt(ctx context.Context, cmd *exec.Cmd, opts CmdOpts) (string, error) {
	execID, err := randString(5)
	if err != nil {
		return "", err
	}

	logCtx := slog.With(slog.String("execID", execID))

	redactor := DefaultCmdOpts.Redactor
	if opts.Redactor != nil {
		redactor = opts.Redactor
	}

	// Log in a way we can copy-and-paste into a terminal.
	args := strings.Join(cmd.Args, " ")
	logCtx.Info(redactor(args), slog.String("dir", cmd.Dir))

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	err = cmd.Run()

	output := stdout.String()
	if opts.CaptureStderr {
		output += stderr.String()
	}

	logCtx.Debug(redactor(output), slog.Duration("duration", time.Since(start)))

	if err != nil {
		cause := errors.New(redactor(err.Error()))
		if ctxErr := context.Cause(ctx); ctxErr != nil && !errors.Is(ctxErr, context.Canceled) {
			cause = ctxErr
		}

		cmdErr := newCmdError(redactor(args), cause, strings.TrimSpace(redactor(stderr.String())))
		if !opts.SkipErrorLogging {
			logCtx.Error(cmdErr.Error())
		}

		return strings.TrimSuffix(output, "\n"), cmdErr
	}

	return strings.TrimSuffix(output, "\n"), nil
}

// RunCommand runs name with args in the current directory.
func RunCommand(ctx context.Context, name string, opts CmdOpts, args ...string) (string, error) {
	return RunCommandExt(ctx, exec.CommandContext(ctx, name, args...), opts)
}
