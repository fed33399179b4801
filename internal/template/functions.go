package template

import (
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	sanitizeRegex = regexp.MustCompile(`[^0-9A-Za-z]`)
	titleCaser    = cases.Title(language.English, cases.NoLower)
)

// helperMap builds the fixed helper function library. Helpers are mustache
// section lambdas: the section body is rendered first, then transformed.
// Misuse (wrong arity, unparsable input) renders empty.
func helperMap() map[string]any {
	return map[string]any{
		"lower":     transform(strings.ToLower),
		"upper":     transform(strings.ToUpper),
		"trim":      transform(strings.TrimSpace),
		"capitalize": transform(func(s string) string {
			return titleCaser.String(s)
		}),
		"sanitize": transform(func(s string) string {
			return sanitizeRegex.ReplaceAllString(s, "")
		}),
		"sanitizeLower": transform(func(s string) string {
			return strings.ToLower(sanitizeRegex.ReplaceAllString(s, ""))
		}),
		"short5": transform(short(5)),
		"short6": transform(short(6)),
		"short7": transform(short(7)),
		"first": transform(func(s string) string {
			fields := strings.Fields(s)
			if len(fields) == 0 {
				return ""
			}
			return fields[0]
		}),
		"last": transform(func(s string) string {
			fields := strings.Fields(s)
			if len(fields) == 0 {
				return ""
			}
			return fields[len(fields)-1]
		}),
		// replace takes "input,search,replacement"
		"replace": transform(func(s string) string {
			parts := strings.SplitN(s, ",", 3)
			if len(parts) != 3 {
				return ""
			}
			return strings.ReplaceAll(parts[0], parts[1], parts[2])
		}),
		// cutLeft/cutRight take "count,input" and keep the rightmost or
		// leftmost count characters
		"cutLeft":  transform(cut(true)),
		"cutRight": transform(cut(false)),
		"timestampYYYYMMDDHHMMSS": transform(func(s string) string {
			return formatTimestamp(s, "20060102150405")
		}),
		"timestampISO8601": transform(func(s string) string {
			return formatTimestamp(s, "2006-01-02T15:04:05Z07:00")
		}),
		"environment": map[string]any{
			"user": currentUser(),
			"variable": transform(func(name string) string {
				return os.Getenv(strings.TrimSpace(name))
			}),
		},
		"file": map[string]any{
			"exists": transform(func(path string) string {
				if _, err := os.Stat(strings.TrimSpace(path)); err != nil {
					return "false"
				}
				return "true"
			}),
			"content": transform(func(path string) string {
				data, err := os.ReadFile(strings.TrimSpace(path))
				if err != nil {
					return ""
				}
				return string(data)
			}),
		},
	}
}

// transform wraps a string function as a mustache section lambda: the body is
// rendered, then passed through fn.
func transform(fn func(string) string) mustache.LambdaFunc {
	return func(text string, render mustache.RenderFunc) (string, error) {
		rendered, err := render(text)
		if err != nil {
			return "", err
		}
		return fn(rendered), nil
	}
}

func short(n int) func(string) string {
	return func(s string) string {
		s = strings.TrimSpace(s)
		if len(s) > n {
			return s[:n]
		}
		return s
	}
}

func cut(fromLeft bool) func(string) string {
	return func(s string) string {
		parts := strings.SplitN(s, ",", 2)
		if len(parts) != 2 {
			return ""
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || n < 0 {
			return ""
		}
		input := parts[1]
		if len(input) <= n {
			return input
		}
		if fromLeft {
			return input[len(input)-n:]
		}
		return input[:n]
	}
}

// formatTimestamp interprets the rendered text as milliseconds since the
// Unix epoch and formats it in UTC. Empty input yields the current time;
// unparsable input yields empty.
func formatTimestamp(s, layout string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC().Format(layout)
	}
	millis, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ""
	}
	return time.UnixMilli(millis).UTC().Format(layout)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
