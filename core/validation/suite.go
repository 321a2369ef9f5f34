package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"wallgen/core"
)

// StepStatus is the state of one validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepSkipped
)

// String returns the lowercase name of the status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Step is one completed validation step.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// SuiteResult aggregates a validation run.
type SuiteResult struct {
	Steps    []Step
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	Success  bool
}

// Endpoint names an external service to probe.
type Endpoint struct {
	Name string
	URL  string
}

// Suite runs the startup checks in order: configuration first, then
// service reachability, skipping the network probes when the
// configuration is already broken.
type Suite struct {
	output       io.Writer
	config       *ConfigChecker
	connectivity *ConnectivityChecker
	endpoints    []Endpoint
	showProgress bool
	failFast     bool
}

// NewSuite creates a Suite for cfg, probing the given endpoints.
func NewSuite(cfg *core.Config, endpoints []Endpoint) *Suite {
	return &Suite{
		output:       os.Stdout,
		config:       NewConfigChecker(cfg),
		connectivity: NewConnectivityChecker(),
		endpoints:    endpoints,
		showProgress: true,
	}
}

// WithOutput redirects progress output.
func (s *Suite) WithOutput(w io.Writer) *Suite {
	s.output = w
	return s
}

// WithShowProgress toggles console output.
func (s *Suite) WithShowProgress(show bool) *Suite {
	s.showProgress = show
	return s
}

// WithFailFast stops at the first failed step.
func (s *Suite) WithFailFast(failFast bool) *Suite {
	s.failFast = failFast
	return s
}

// WithTimeout sets the network probe timeout.
func (s *Suite) WithTimeout(timeout time.Duration) *Suite {
	s.connectivity.WithTimeout(timeout)
	return s
}

// Validate runs every check and returns the aggregated result.
func (s *Suite) Validate(ctx context.Context) SuiteResult {
	started := time.Now()

	if s.showProgress {
		s.printHeader("Wallgen Startup Validation")
	}

	steps := s.runConfigChecks()
	configBroken := hasFailure(steps)

	if !configBroken || !s.failFast {
		for _, endpoint := range s.endpoints {
			var step Step
			if configBroken {
				step = Step{
					Name:    endpoint.Name,
					Status:  StepSkipped,
					Message: "skipped, configuration errors",
				}
				if s.showProgress {
					s.printStep(step)
				}
			} else {
				url := endpoint.URL
				step = s.runStep(endpoint.Name, func() (bool, string, error) {
					result := s.connectivity.CheckEndpoint(ctx, url)
					message := result.Message
					if result.Latency > 0 && result.Reachable {
						message = fmt.Sprintf("%s, %v", message, result.Latency.Round(time.Millisecond))
					}
					return result.Reachable, message, result.Error
				})
			}
			steps = append(steps, step)
			if s.failFast && step.Status == StepFailed {
				break
			}
		}
	}

	result := buildResult(steps, started)
	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

// ValidateQuick runs only the offline configuration checks.
func (s *Suite) ValidateQuick() SuiteResult {
	started := time.Now()
	if s.showProgress {
		s.printHeader("Quick Configuration Check")
	}
	result := buildResult(s.runConfigChecks(), started)
	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

func (s *Suite) runConfigChecks() []Step {
	checks := []struct {
		name string
		fn   func() CheckResult
	}{
		{"Data Directory", s.config.CheckDataDirectory},
		{"Disk Space", s.config.CheckDiskSpace},
		{"Generation Interval", s.config.CheckGenerationInterval},
		{"Screen Resolution", s.config.CheckScreenResolution},
		{"Image Provider", s.config.CheckProviderCredentials},
		{"Wallpaper Command", s.config.CheckWallpaperCommand},
	}

	var steps []Step
	for _, check := range checks {
		fn := check.fn
		step := s.runStep(check.name, func() (bool, string, error) {
			result := fn()
			return result.Valid, result.Message, result.Error
		})
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			break
		}
	}
	return steps
}

func (s *Suite) runStep(name string, fn func() (bool, string, error)) Step {
	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", name)
	}

	started := time.Now()
	passed, message, err := fn()

	step := Step{
		Name:    name,
		Message: message,
		Error:   err,
		Latency: time.Since(started),
		Status:  StepFailed,
	}
	if passed {
		step.Status = StepPassed
	}

	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func hasFailure(steps []Step) bool {
	for _, step := range steps {
		if step.Status == StepFailed {
			return true
		}
	}
	return false
}

func buildResult(steps []Step, started time.Time) SuiteResult {
	result := SuiteResult{
		Steps:    steps,
		Duration: time.Since(started),
		Success:  true,
	}
	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.Passed++
		case StepFailed:
			result.Failed++
			result.Success = false
		case StepSkipped:
			result.Skipped++
		}
	}
	return result
}

func (s *Suite) printHeader(title string) {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "=== %s ===\n", title)
	fmt.Fprintln(s.output)
}

func (s *Suite) printStep(step Step) {
	var icon string
	var clr *color.Color
	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *Suite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)
	if result.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(s.output, "=== Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks in %v)",
			result.Passed, len(result.Steps), result.Duration.Round(time.Millisecond))
		color.New(color.FgGreen, color.Bold).Fprintln(s.output, " ===")
	} else {
		color.New(color.FgRed, color.Bold).Fprintf(s.output, "=== Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.Passed, result.Failed)
		color.New(color.FgRed, color.Bold).Fprintln(s.output, " ===")
	}
	fmt.Fprintln(s.output)
}

// FirstError returns the first step error, or nil when everything passed.
func (r SuiteResult) FirstError() error {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a one-line description of the run.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation passed: ")
	} else {
		sb.WriteString("Validation failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d checks passed", r.Passed, len(r.Steps))
	if r.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.Failed)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, ", %d skipped", r.Skipped)
	}
	fmt.Fprintf(&sb, " (%v)", r.Duration.Round(time.Millisecond))
	return sb.String()
}
