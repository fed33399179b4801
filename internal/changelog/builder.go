// Package changelog renders the Markdown changelog artifact from the
// release scope.
package changelog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/nyx/internal/config"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/fileutil"
	"github.com/relicta-tech/nyx/internal/release"
	"github.com/relicta-tech/nyx/internal/template"
)

// Item is one changelog bullet.
type Item struct {
	// Type is the conventional commit type.
	Type string
	// Scope is the optional commit scope.
	Scope string
	// Title is the commit title.
	Title string
	// SHA is the full commit identifier.
	SHA string
	// ShortSHA is the abbreviated commit identifier.
	ShortSHA string
	// Author is the commit author name.
	Author string
}

// Section groups items under a configured section name.
type Section struct {
	Name  string
	Items []Item
}

// Document is the structured changelog for one release.
type Document struct {
	Version  string
	Date     time.Time
	Sections []Section
}

// Builder produces the changelog document and renders it to Markdown.
type Builder struct {
	engine *template.Engine
	now    func() time.Time
}

// NewBuilder creates a changelog builder. The clock is injectable for tests.
func NewBuilder(engine *template.Engine) *Builder {
	return &Builder{engine: engine, now: time.Now}
}

// WithClock overrides the release date source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build groups the significant commits into the configured sections, in
// section declaration order. Commits whose type matches no section are
// omitted.
func (b *Builder) Build(cfg *config.ChangelogConfig, version string, commits []release.SignificantCommit) (*Document, error) {
	const op = "changelog.Build"

	doc := &Document{Version: version, Date: b.now()}

	for _, pair := range cfg.Sections.Pairs() {
		re, err := regexp.Compile(pair.Value)
		if err != nil {
			return nil, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "changelog section %q has an invalid expression", pair.Key).
				WithFields("changelog.sections." + pair.Key)
		}

		section := Section{Name: pair.Key}
		for _, sc := range commits {
			if !re.MatchString(sc.Match.Type) {
				continue
			}
			title := sc.Match.Title
			if title == "" {
				title = sc.Commit.Subject()
			}
			section.Items = append(section.Items, Item{
				Type:     sc.Match.Type,
				Scope:    sc.Match.Scope,
				Title:    title,
				SHA:      sc.Commit.SHA().String(),
				ShortSHA: sc.Commit.ShortSHA(),
				Author:   sc.Commit.Author().Name,
			})
		}
		if len(section.Items) > 0 {
			doc.Sections = append(doc.Sections, section)
		}
	}
	return doc, nil
}

// Render produces the Markdown text: the default layout, or the configured
// template rendered with the section tree as context. Substitutions apply to
// each line afterwards.
func (b *Builder) Render(cfg *config.ChangelogConfig, doc *Document) (string, error) {
	var rendered string
	var err error

	if cfg.Template != "" {
		rendered, err = b.engine.Render(cfg.Template, doc.templateContext())
		if err != nil {
			return "", err
		}
	} else {
		rendered = b.defaultLayout(doc)
	}

	return b.substitute(cfg, rendered)
}

func (b *Builder) defaultLayout(doc *Document) string {
	var sb strings.Builder
	sb.WriteString("# Changelog\n\n")
	fmt.Fprintf(&sb, "## %s (%s)\n", doc.Version, doc.Date.Format("2006-01-02"))

	for _, section := range doc.Sections {
		fmt.Fprintf(&sb, "\n### %s\n\n", section.Name)
		for _, item := range section.Items {
			if item.Scope != "" {
				fmt.Fprintf(&sb, "* %s **%s:** %s\n", item.ShortSHA, item.Scope, item.Title)
			} else {
				fmt.Fprintf(&sb, "* %s %s\n", item.ShortSHA, item.Title)
			}
		}
	}
	return sb.String()
}

func (b *Builder) substitute(cfg *config.ChangelogConfig, rendered string) (string, error) {
	const op = "changelog.Render"

	pairs := cfg.Substitutions.Pairs()
	if len(pairs) == 0 {
		return rendered, nil
	}

	expressions := make([]*regexp.Regexp, len(pairs))
	for i, pair := range pairs {
		re, err := regexp.Compile(pair.Key)
		if err != nil {
			return "", nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "changelog substitution %q is not a valid expression", pair.Key).
				WithFields("changelog.substitutions")
		}
		expressions[i] = re
	}

	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		for j, re := range expressions {
			line = re.ReplaceAllString(line, pairs[j].Value)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}

func (doc *Document) templateContext() map[string]any {
	sections := make([]any, len(doc.Sections))
	for i, section := range doc.Sections {
		items := make([]any, len(section.Items))
		for j, item := range section.Items {
			items[j] = map[string]any{
				"type":     item.Type,
				"scope":    item.Scope,
				"title":    item.Title,
				"sha":      item.SHA,
				"shortSha": item.ShortSHA,
				"author":   item.Author,
			}
		}
		sections[i] = map[string]any{
			"name":    section.Name,
			"commits": items,
		}
	}
	return map[string]any{
		"version":  doc.Version,
		"date":     doc.Date.Format("2006-01-02"),
		"sections": sections,
	}
}

// Write persists the rendered changelog. The write is skipped when the file
// already holds identical content.
func Write(path, content string) (bool, error) {
	const op = "changelog.Write"

	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		log.Debug("changelog unchanged, skipping write", "path", path)
		return false, nil
	}
	if err := fileutil.AtomicWriteFile(path, []byte(content), 0o644); err != nil {
		return false, nyxerrors.IOWrap(err, op, "unable to write the changelog to "+path)
	}
	return true, nil
}
