package pipeline

import (
	"fmt"
	"strings"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/fileutil"
)

// Summary renders the flat run summary printed after Infer.
func (p *Pipeline) Summary() string {
	var sb strings.Builder

	previous, prime := "", ""
	if p.state.ReleaseScope != nil {
		previous = p.state.ReleaseScope.PreviousVersion
		prime = p.state.ReleaseScope.PrimeVersion
	}

	for _, entry := range []struct {
		key   string
		value any
	}{
		{"branch", p.state.Branch},
		{"bump", p.state.Bump},
		{"new release", p.state.NewRelease},
		{"new version", p.state.NewVersion},
		{"scheme", p.state.Scheme},
		{"timestamp", p.state.Timestamp},
		{"previous version", previous},
		{"prime version", prime},
		{"version", p.state.Version},
	} {
		fmt.Fprintf(&sb, "%-18s = %v\n", entry.key, entry.value)
	}
	return sb.String()
}

// writeSummary persists the summary to the configured file, if any.
func (p *Pipeline) writeSummary() error {
	if p.cfg.SummaryFile == "" {
		return nil
	}
	if err := fileutil.AtomicWriteFile(p.cfg.SummaryFile, []byte(p.Summary()), 0o644); err != nil {
		return nyxerrors.IOWrap(err, "pipeline.writeSummary", "unable to write the summary file "+p.cfg.SummaryFile)
	}
	return nil
}
