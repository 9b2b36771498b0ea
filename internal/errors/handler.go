package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"

	"vagrantkit/internal/ui"
	"vagrantkit/pkg/runtime"
)

const (
	logFileName    = "vagrantkit.log"
	logMaxBytes    = 10 * 1024 * 1024
	logKeepBackups = 5
)

// ErrorHandler prints failures on the console and appends a JSON record of
// each one to the error log.
type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	logFile, err := openLogFile()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &ErrorHandler{
		logger:  logger,
		console: ui.NewConsole(),
	}, nil
}

// platformLogDir is where the error log lives when VAGRANTKIT_LOG_DIR is unset.
func platformLogDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch goruntime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", "VagrantKit"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if state := os.Getenv("XDG_STATE_HOME"); state != "" {
			return filepath.Join(state, "vagrantkit"), nil
		}
		return filepath.Join(homeDir, ".local", "state", "vagrantkit"), nil
	case "windows":
		if cache, err := os.UserCacheDir(); err == nil {
			return filepath.Join(cache, "VagrantKit", "logs"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "VagrantKit", "logs"), nil
	default:
		return filepath.Join(homeDir, ".vagrantkit", "logs"), nil
	}
}

// logDirCandidates lists the directories the error log may be written to,
// most preferred first. The working directory is always last.
func logDirCandidates() []string {
	var dirs []string
	if dir := os.Getenv("VAGRANTKIT_LOG_DIR"); dir != "" {
		dirs = append(dirs, dir)
	} else if dir, err := platformLogDir(); err == nil {
		dirs = append(dirs, dir)
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	return dirs
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		slog.Warn("Failed to close write check file", "path", name, "error", err)
	}
	return os.Remove(name)
}

func openLogFile() (*os.File, error) {
	var lastErr error
	for i, dir := range logDirCandidates() {
		if err := checkWritable(dir); err != nil {
			lastErr = fmt.Errorf("cannot write to %s: %w", dir, err)
			continue
		}
		if i > 0 && lastErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v. Writing the error log to %s instead.\n", lastErr, dir)
		}

		path := filepath.Join(dir, logFileName)
		if err := rotate(path, logMaxBytes, logKeepBackups); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to rotate %s: %v\n", path, err)
		}
		return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	}

	if lastErr == nil {
		lastErr = errors.New("no candidate directory")
	}
	return nil, fmt.Errorf("failed to create log directory: %w", lastErr)
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// rotate moves path to path.1 once it reaches maxBytes, shifting older
// backups up by one and dropping the one past keep.
func rotate(path string, maxBytes int64, keep int) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() < maxBytes {
		return nil
	}

	if err := os.Remove(backupName(path, keep)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := keep - 1; i >= 1; i-- {
		if err := os.Rename(backupName(path, i), backupName(path, i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return os.Rename(path, backupName(path, 1))
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	attrs := append([]slog.Attr{slog.String("error", err.Error())}, failureAttrs(err)...)

	var vkErr *VagrantKitError
	if !errors.As(err, &vkErr) {
		attrs = append(attrs, slog.String("type", "generic"))
		h.logger.LogAttrs(context.Background(), slog.LevelError, "Unhandled error occurred", attrs...)
		h.console.PrintError(err.Error())
		return
	}

	attrs = append(attrs,
		slog.String("type", getErrorTypeName(vkErr.Type)),
		slog.Bool("user_error", vkErr.IsUserError()),
		slog.String("context", vkErr.Context),
	)
	if vkErr.Cause != "" {
		attrs = append(attrs, slog.String("cause", vkErr.Cause))
	}
	if vkErr.Suggestion != "" {
		attrs = append(attrs, slog.String("suggestion", vkErr.Suggestion))
	}
	h.logger.LogAttrs(context.Background(), slog.LevelError, "VagrantKit error occurred", attrs...)

	h.console.PrintError(h.consoleMessage(err, vkErr))
}

// failureAttrs pulls the failing instance, action and command out of the
// error chain.
func failureAttrs(err error) []slog.Attr {
	var attrs []slog.Attr

	var failure *ActionFailure
	if errors.As(err, &failure) {
		attrs = append(attrs, slog.String("instance", failure.Instance), slog.String("action", failure.Action))
	}

	var cmdErr *runtime.CommandError
	if errors.As(err, &cmdErr) {
		attrs = append(attrs, slog.String("command", cmdErr.Command), slog.Int("exit_code", cmdErr.ExitCode))
		if cmdErr.Stderr != "" {
			attrs = append(attrs, slog.String("stderr", cmdErr.Stderr))
		}
	}
	return attrs
}

// consoleMessage leads with the failed action, unless the error is about the
// user's environment or kitchen file, which no action caused.
func (h *ErrorHandler) consoleMessage(err error, vkErr *VagrantKitError) string {
	message := h.console.FormatErrorMessage(vkErr.Context, vkErr.Cause, vkErr.Suggestion)

	var failure *ActionFailure
	if vkErr.IsUserError() || !errors.As(err, &failure) {
		return message
	}
	return fmt.Sprintf("Failed to complete #%s action on <%s>.\n%s", failure.Action, failure.Instance, message)
}

func getErrorTypeName(errType error) string {
	switch errType {
	case ErrKitchenFileNotFound:
		return "kitchen_file_not_found"
	case ErrKitchenFileParseFailed:
		return "kitchen_file_parse_failed"
	case ErrConfigInvalid:
		return "config_invalid"
	case ErrDependencyMissing:
		return "dependency_missing"
	case ErrDependencyOutdated:
		return "dependency_outdated"
	case ErrTemplateNotFound:
		return "template_not_found"
	case ErrCommandFailed:
		return "command_failed"
	case ErrActionFailed:
		return "action_failed"
	case ErrStateFailed:
		return "state_failed"
	case ErrFileSystemFailed:
		return "filesystem_failed"
	default:
		return "unknown"
	}
}
