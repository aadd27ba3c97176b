// Package engine runs the external metadata (yt-dlp) and transcode (ffmpeg) engines.
//
// Every process is started through a Runner so tests can substitute canned output, and so
// that all invocations share the same sanitized environment and console handling.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/domain/regex"
)

// Cmd describes one engine invocation.
type Cmd struct {
	Name string
	Args []string
}

func (c Cmd) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner starts engine processes.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, c Cmd) ([]byte, error)
	// Stream runs the command and hands each merged stdout/stderr line to onLine.
	Stream(ctx context.Context, c Cmd, onLine func(string)) error
	// LookPath resolves the executable.
	LookPath(name string) (string, error)
}

// allowedEnv lists the environment variables passed through to engine processes.
var allowedEnv = map[string]struct{}{
	"PATH":        {},
	"HOME":        {},
	"USERPROFILE": {},
	"SYSTEMROOT":  {},
	"TEMP":        {},
	"TMP":         {},
	"TMPDIR":      {},
	"LANG":        {},
	"LC_ALL":      {},
}

// SanitizedEnv filters environ down to the allow-listed variables.
func SanitizedEnv(environ []string) []string {
	out := make([]string, 0, len(allowedEnv))
	for _, kv := range environ {
		k, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, allowed := allowedEnv[strings.ToUpper(k)]; allowed {
			out = append(out, kv)
		}
	}
	return out
}

// ExecRunner runs real processes.
type ExecRunner struct {
	Env []string
}

// NewExecRunner returns a runner using the sanitized process environment.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Env: SanitizedEnv(os.Environ())}
}

// LookPath resolves the executable on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q not found: %w", errs.ErrEnvironment, name, err)
	}
	return p, nil
}

func (r *ExecRunner) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = r.Env
	cmd.WaitDelay = consts.ProcessWaitDelay
	setProcAttr(cmd)
	return cmd
}

// Output runs the command and returns stdout.
func (r *ExecRunner) Output(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := r.command(ctx, c)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Pl.D(2, "Running %s", c.String())
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), wrapRunErr(ctx, c, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Stream runs the command, merging stdout and stderr into onLine.
func (r *ExecRunner) Stream(ctx context.Context, c Cmd, onLine func(string)) error {
	cmd := r.command(ctx, c)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	logger.Pl.D(1, "Executing %s", c.String())
	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return wrapRunErr(ctx, c, err, "")
	}

	var tail lastLines
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := regex.AnsiEscapeCompile().ReplaceAllString(scanner.Text(), "")
			tail.add(line)
			if onLine != nil {
				onLine(line)
			}
		}
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-done
	pr.Close()

	if waitErr != nil {
		return wrapRunErr(ctx, c, waitErr, tail.String())
	}
	return nil
}

// wrapRunErr classifies a process failure.
func wrapRunErr(ctx context.Context, c Cmd, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", errs.ErrEnvironment, c.Name, err)
	}
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		return fmt.Errorf("%w: %s failed: %w: %s", errs.ErrEngine, c.Name, err, stderr)
	}
	return fmt.Errorf("%w: %s failed: %w", errs.ErrEngine, c.Name, err)
}

// lastLines keeps the final few output lines for error messages.
type lastLines struct {
	lines []string
}

const keepLines = 5

func (l *lastLines) add(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	l.lines = append(l.lines, s)
	if len(l.lines) > keepLines {
		l.lines = l.lines[len(l.lines)-keepLines:]
	}
}

func (l *lastLines) String() string {
	return strings.Join(l.lines, "\n")
}
