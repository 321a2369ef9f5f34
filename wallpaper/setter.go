package wallpaper

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"wallgen/logging"
)

// Setter applies a stored artifact as the desktop background.
type Setter interface {
	Apply(ctx context.Context, imagePath string) error
}

// CommandSetter shells out to a platform tool to set the wallpaper. The
// command template may contain %s, replaced with the image path; without
// it the path is appended as the final argument.
type CommandSetter struct {
	command string
	logger  *logging.Logger
}

// NewCommandSetter builds a Setter from an explicit command template, or
// from a per-platform default when the template is empty.
func NewCommandSetter(command string, logger *logging.Logger) (*CommandSetter, error) {
	if command == "" {
		command = defaultCommand()
		if command == "" {
			return nil, fmt.Errorf("wallpaper: no default setter command for %s, configure one", runtime.GOOS)
		}
	}
	return &CommandSetter{command: command, logger: logger}, nil
}

func defaultCommand() string {
	// Only GNOME has a setter that survives naive argv splitting; other
	// desktops need an explicit WALLPAPER_COMMAND.
	if runtime.GOOS == "linux" {
		return "gsettings set org.gnome.desktop.background picture-uri file://%s"
	}
	return ""
}

// Apply runs the configured command against the image path.
func (s *CommandSetter) Apply(ctx context.Context, imagePath string) error {
	command := s.command
	if strings.Contains(command, "%s") {
		command = strings.ReplaceAll(command, "%s", imagePath)
	} else {
		command = command + " " + imagePath
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return fmt.Errorf("wallpaper: empty setter command")
	}

	if s.logger != nil {
		s.logger.Debug("applying wallpaper", zap.String("path", imagePath))
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("wallpaper: setter command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// NopSetter ignores apply requests. Used when wallpaper application is
// disabled by configuration.
type NopSetter struct{}

// Apply does nothing.
func (NopSetter) Apply(ctx context.Context, imagePath string) error {
	return nil
}
