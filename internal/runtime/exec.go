package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"

	"vagrantkit/pkg/runtime"
)

// ExecRuntime implements the CommandRunner interface with os/exec.
type ExecRuntime struct {
	logger *slog.Logger
}

// NewExecRuntime creates a new ExecRuntime logging through the default slog logger.
func NewExecRuntime() *ExecRuntime {
	return &ExecRuntime{logger: slog.Default()}
}

// Run executes the command, streams its output into the log line by line
// and returns the captured standard output.
func (r *ExecRuntime) Run(ctx context.Context, opts runtime.RunOptions) (string, error) {
	if len(opts.Command) == 0 {
		return "", fmt.Errorf("empty command")
	}

	line := shellquote.Join(opts.Command...)
	level := slog.LevelInfo
	if opts.Quiet {
		level = slog.LevelDebug
	}
	r.logger.Debug("Running command", "command", line, "dir", opts.WorkingDirectory)

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.WorkingDirectory
	if len(opts.EnvVars) > 0 {
		cmd.Env = os.Environ()
		for key, value := range opts.EnvVars {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
	}

	var stdout, stderr bytes.Buffer
	outLog := &lineWriter{logger: r.logger, level: level, stream: "stdout"}
	errLog := &lineWriter{logger: r.logger, level: level, stream: "stderr"}
	cmd.Stdout = &teeWriter{buf: &stdout, lines: outLog}
	cmd.Stderr = &teeWriter{buf: &stderr, lines: errLog}

	err := cmd.Run()
	outLog.flush()
	errLog.flush()

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", opts.Command[0], runtime.ErrExecutableNotFound)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &runtime.CommandError{
				Command:  line,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(cleanLine(stderr.String())),
			}
		}
		return stdout.String(), fmt.Errorf("failed to run %q: %w", line, err)
	}

	return stdout.String(), nil
}

type teeWriter struct {
	buf   *bytes.Buffer
	lines *lineWriter
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.buf.Write(p)
	return t.lines.Write(p)
}

// lineWriter logs every complete line written to it.
type lineWriter struct {
	logger  *slog.Logger
	level   slog.Level
	stream  string
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		w.emit(string(w.partial[:idx]))
		w.partial = w.partial[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = nil
	}
}

func (w *lineWriter) emit(line string) {
	if clean := cleanLine(line); clean != "" {
		w.logger.Log(context.Background(), w.level, "Command output", "stream", w.stream, "line", clean)
	}
}

// ansiRegex is a compiled regex for ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// cleanLine removes ANSI escape sequences and carriage returns from command output.
func cleanLine(line string) string {
	line = ansiRegex.ReplaceAllString(line, "")
	line = strings.ReplaceAll(line, "\r", "")
	return strings.TrimSpace(line)
}
