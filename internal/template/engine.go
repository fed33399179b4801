// Package template provides mustache-compatible text interpolation for
// configuration fields resolved lazily against the live engine state.
package template

import (
	"strconv"
	"strings"

	"github.com/cbroglie/mustache"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Engine renders mustache templates with the fixed helper function library.
// The zero value is not usable; construct with NewEngine.
type Engine struct {
	helpers map[string]any
}

// NewEngine creates a template engine with the standard helper library.
func NewEngine() *Engine {
	return &Engine{helpers: helperMap()}
}

// IsTemplate reports whether the string contains mustache delimiters and
// therefore needs rendering.
func IsTemplate(s string) bool {
	return strings.Contains(s, "{{") && strings.Contains(s, "}}")
}

// Render interpolates the template against the given context. Helper
// functions shadow context keys of the same name. Undefined names render
// empty.
func (e *Engine) Render(tmpl string, context map[string]any) (string, error) {
	const op = "template.Render"

	parsed, err := mustache.ParseString(tmpl)
	if err != nil {
		return "", nyxerrors.TemplateWrap(err, op, "malformed template")
	}

	scope := make(map[string]any, len(context)+len(e.helpers))
	for k, v := range context {
		scope[k] = v
	}
	for k, v := range e.helpers {
		if existing, ok := scope[k]; ok {
			// nested helpers (environment.*, file.*) merge into the
			// context map instead of replacing it
			if sub, ok := existing.(map[string]any); ok {
				if add, ok := v.(map[string]any); ok {
					for name, fn := range add {
						sub[name] = fn
					}
					continue
				}
			}
		}
		scope[k] = v
	}

	out, err := parsed.Render(scope)
	if err != nil {
		return "", nyxerrors.TemplateWrap(err, op, "template rendering failed")
	}
	return out, nil
}

// ToBoolean renders the template and interprets the result as a boolean.
// Only a case-insensitive "true" is true; everything else, including render
// failures on non-template input, is false.
func (e *Engine) ToBoolean(tmpl string, context map[string]any) bool {
	out, err := e.Render(tmpl, context)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(out), "true")
}

// ToInteger renders the template and parses the result as an integer,
// returning 0 when the output is not a number.
func (e *Engine) ToInteger(tmpl string, context map[string]any) int64 {
	out, err := e.Render(tmpl, context)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
