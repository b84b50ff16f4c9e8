package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

var (
	variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

	blockHelpers = map[string]struct{}{
		"if":     {},
		"else":   {},
		"each":   {},
		"unless": {},
		"with":   {},
	}

	registerHelpersOnce sync.Once
)

// RenderResult is a rendered subject/body pair.
type RenderResult struct {
	Subject *string
	Body    string
}

// Engine renders Handlebars templates.
type Engine struct{}

func NewEngine() *Engine {
	registerHelpersOnce.Do(func() {
		raymond.RegisterHelper("uppercase", func(s string) string {
			return strings.ToUpper(s)
		})
		raymond.RegisterHelper("lowercase", func(s string) string {
			return strings.ToLower(s)
		})
		raymond.RegisterHelper("capitalize", func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		})
	})

	return &Engine{}
}

// Render renders the optional subject template and the body template against
// the given variables. Missing variables render as empty strings.
func (e *Engine) Render(subjectTpl *string, bodyTpl string, vars map[string]any) (RenderResult, error) {
	if vars == nil {
		vars = map[string]any{}
	}

	body, err := renderOne(bodyTpl, vars)
	if err != nil {
		return RenderResult{}, fmt.Errorf("failed to render body: %w", err)
	}

	result := RenderResult{Body: body}

	if subjectTpl != nil && *subjectTpl != "" {
		subject, err := renderOne(*subjectTpl, vars)
		if err != nil {
			return RenderResult{}, fmt.Errorf("failed to render subject: %w", err)
		}
		result.Subject = &subject
	}

	return result, nil
}

// Validate parses a template without rendering it.
func (e *Engine) Validate(tpl string) error {
	if _, err := raymond.Parse(tpl); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

// ExtractVariables returns the sorted set of simple variable names referenced
// by a template. Block helpers and their keywords are excluded.
func (e *Engine) ExtractVariables(tpl string) []string {
	matches := variablePattern.FindAllStringSubmatch(tpl, -1)

	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		name := match[1]
		if _, helper := blockHelpers[name]; helper {
			continue
		}
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func renderOne(tpl string, vars map[string]any) (string, error) {
	parsed, err := raymond.Parse(tpl)
	if err != nil {
		return "", err
	}
	return parsed.Exec(vars)
}
