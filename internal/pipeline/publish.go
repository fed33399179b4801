package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/services"
	"github.com/relicta-tech/nyx/internal/state"
)

// Publish creates the hosted releases on every configured publication
// service, in declaration order. A failing service is reported and the
// remaining services still run; any failure fails the phase.
func (p *Pipeline) Publish(ctx context.Context) error {
	const op = "pipeline.Publish"

	if err := p.machine.advance(eventPublish, statePublished); err != nil {
		return err
	}
	if err := p.ensureSelection(ctx); err != nil {
		return err
	}

	if !p.state.NewRelease {
		log.Info("no new release, nothing to publish")
		p.state.RecordPhase(state.PhasePublish, p.state.Version, true)
		return p.saveState()
	}
	if p.state.PhaseSucceeded(state.PhasePublish, p.state.Version) {
		log.Info("skipping Publish, already completed", "version", p.state.Version)
		return nil
	}

	tctx := p.state.TemplateContext()
	title, body, err := p.releaseContent(tctx)
	if err != nil {
		return err
	}
	tag := p.cfg.ReleasePrefix + p.state.Version

	var failed []string
	for _, name := range p.cfg.ReleaseTypes.PublicationServices {
		if err := ctx.Err(); err != nil {
			return nyxerrors.Wrap(err, nyxerrors.KindCanceled, op, "publication canceled")
		}
		if err := p.publishTo(ctx, name, title, tag, body, tctx); err != nil {
			log.Error("publication failed", "service", name, "error", nyxerrors.RedactError(err))
			failed = append(failed, name)
			continue
		}
	}

	success := len(failed) == 0
	p.state.RecordPhase(state.PhasePublish, p.state.Version, success)
	if err := p.saveState(); err != nil {
		return err
	}
	if !success {
		return nyxerrors.Newf(nyxerrors.KindService, op, "publication failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (p *Pipeline) publishTo(ctx context.Context, name, title, tag, body string, tctx map[string]any) error {
	const op = "pipeline.Publish"

	serviceCfg, ok := p.cfg.Services[name]
	if !ok {
		return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "publication service %q is not configured", name).
			WithFields("releaseTypes.publicationServices")
	}

	options := make(services.Options, len(serviceCfg.Options))
	for key, value := range serviceCfg.Options {
		resolved, err := p.engine.Render(value, tctx)
		if err != nil {
			return err
		}
		options[key] = resolved
	}

	if p.dryRun() {
		log.Info("dry run: would create release", "service", name, "tag", tag, "title", title)
		return nil
	}

	service, err := p.services(name, serviceCfg, options)
	if err != nil {
		return err
	}
	if !service.Supports(services.CapabilityReleases) {
		return services.Unsupported(service.Provider(), services.CapabilityReleases)
	}

	// skip recreation when a previous partially-failed run already
	// published this tag here
	if existing, err := service.GetReleaseByTag(ctx, tag); err == nil && existing != nil {
		log.Info("release already exists, skipping", "service", name, "tag", tag)
		return nil
	}

	created, err := service.CreateRelease(ctx, title, tag, body)
	if err != nil {
		return err
	}
	log.Info("published release", "service", name, "tag", tag, "url", created.URL)

	assets := p.releaseAssets(tctx)
	if len(assets) > 0 {
		if err := service.PublishReleaseAssets(ctx, created, assets); err != nil {
			return err
		}
	}
	return nil
}

// releaseContent resolves the release title and body. The body is the
// changelog artifact when one was produced.
func (p *Pipeline) releaseContent(tctx map[string]any) (title, body string, err error) {
	title = p.state.Version
	if p.selection.Type.Description != "" {
		title, err = p.engine.Render(p.selection.Type.Description, tctx)
		if err != nil {
			return "", "", err
		}
	}

	if p.state.Changelog != nil && p.state.Changelog.Path != "" {
		path := p.state.Changelog.Path
		if p.cfg.Directory != "" && !filepath.IsAbs(path) {
			path = filepath.Join(p.cfg.Directory, path)
		}
		if data, readErr := os.ReadFile(path); readErr == nil {
			body = string(data)
		}
	}
	return title, body, nil
}

// releaseAssets resolves the configured release assets.
func (p *Pipeline) releaseAssets(tctx map[string]any) []services.Asset {
	if len(p.cfg.ReleaseAssets) == 0 {
		return nil
	}

	assets := make([]services.Asset, 0, len(p.cfg.ReleaseAssets))
	for name, asset := range p.cfg.ReleaseAssets {
		fileName, err := p.engine.Render(asset.FileName, tctx)
		if err != nil || fileName == "" {
			fileName = name
		}
		path, err := p.engine.Render(asset.Path, tctx)
		if err != nil {
			continue
		}
		description, _ := p.engine.Render(asset.Description, tctx)
		assets = append(assets, services.Asset{
			Name:        fileName,
			Description: description,
			Type:        asset.Type,
			Path:        path,
		})
	}
	return assets
}
