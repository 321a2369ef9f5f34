// Package promptengine resolves $VARIABLE tokens in prompt templates to
// runtime values such as the configured location, the local time-of-day
// bucket, and the current weather.
package promptengine

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// variablePattern matches $-prefixed alphanumeric/underscore tokens.
var variablePattern = regexp.MustCompile(`\$(\w+)`)

// Handler produces the value for one variable. Handlers may perform
// network lookups; the engine runs them concurrently and at most once per
// Resolve call.
type Handler func(ctx context.Context) (string, error)

// Engine is a registry of variable handlers. Registration is expected at
// startup; Resolve and Validate may then be called from any goroutine.
type Engine struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewEngine creates an empty Engine.
func NewEngine() *Engine {
	return &Engine{handlers: make(map[string]Handler)}
}

// AddVariable registers a handler under a case-insensitive name.
func (e *Engine) AddVariable(name string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[strings.ToLower(name)] = handler
}

func (e *Engine) handler(name string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[strings.ToLower(name)]
	return h, ok
}

// normalize flattens a template to a single trimmed line.
func normalize(template string) string {
	return strings.Join(strings.Split(strings.TrimSpace(template), "\n"), " ")
}

// uniqueTokens returns the distinct lowercased token names in a template.
func uniqueTokens(template string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, match := range variablePattern.FindAllStringSubmatch(template, -1) {
		name := strings.ToLower(match[1])
		if !seen[name] {
			seen[name] = true
			tokens = append(tokens, name)
		}
	}
	return tokens
}

// Resolve substitutes every token in the template with its handler's
// value. Distinct tokens are resolved concurrently, and each handler runs
// at most once per call no matter how often its token repeats.
func (e *Engine) Resolve(ctx context.Context, template string) (string, error) {
	template = normalize(template)

	tokens := uniqueTokens(template)
	if len(tokens) == 0 {
		return template, nil
	}

	// Fail on unknown tokens before running any handler.
	for _, name := range tokens {
		if _, ok := e.handler(name); !ok {
			return "", &UnresolvedVariableError{Name: name}
		}
	}

	var mu sync.Mutex
	values := make(map[string]string, len(tokens))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, name := range tokens {
		name := name
		handler, _ := e.handler(name)
		group.Go(func() error {
			value, err := handler(groupCtx)
			if err != nil {
				return err
			}
			if value == "" {
				return &MissingValueError{Name: name}
			}
			mu.Lock()
			values[name] = value
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	resolved := variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		return values[strings.ToLower(match[1:])]
	})
	return resolved, nil
}

// Validate checks that every token in the template has a registered
// handler without invoking any of them. Safe to call on each keystroke of
// a prompt editor.
func (e *Engine) Validate(template string) error {
	for _, name := range uniqueTokens(normalize(template)) {
		if _, ok := e.handler(name); !ok {
			return &UnresolvedVariableError{Name: name}
		}
	}
	return nil
}
