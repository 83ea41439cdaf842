package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/ports"
	"github.com/stugorf/hdc-digest/internal/salvage"
)

// PipelineDeps wires all driven adapters into the digest pipeline.
type PipelineDeps struct {
	Source   ports.SectionSource
	Agent    ports.Agent
	Parser   *salvage.Parser
	Store    ports.SeenStore
	Notifier ports.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// RunOptions tunes a single pipeline run.
type RunOptions struct {
	// DryRun persists the batch but skips notification.
	DryRun bool
}

// Pipeline implements the digest workflow: retrieve, gate, synthesize,
// deduplicate, persist, notify.
type Pipeline struct {
	source   ports.SectionSource
	agent    ports.Agent
	parser   *salvage.Parser
	store    ports.SeenStore
	notifier ports.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	parser := deps.Parser
	if parser == nil {
		parser = salvage.NewParser(salvage.WithLogger(deps.Logger))
	}
	return &Pipeline{
		source:   deps.Source,
		agent:    deps.Agent,
		parser:   parser,
		store:    deps.Store,
		notifier: deps.Notifier,
		now:      now,
		logger:   deps.Logger,
	}
}

// Run executes one batch. Sections are processed one after another; any
// failure aborts the run before anything is persisted or sent. The returned
// digest holds only items not seen in earlier runs.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (domain.Digest, error) {
	if p.source == nil || p.agent == nil || p.store == nil {
		return domain.Digest{}, fmt.Errorf("pipeline is not fully configured")
	}

	started := p.now()
	runID := uuid.NewString()
	day := started.UTC()
	log := p.log().With("run_id", runID)
	log.Info("digest run started", "date", day.Format(domain.DateLayout), "dry_run", opts.DryRun)

	raw, err := p.source.FetchSections(ctx, day)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("fetch sections: %w", err)
	}
	raw = CollapseRepeats(raw)

	gated := make([]domain.Section, 0, len(raw))
	for _, section := range raw {
		judged, err := p.gateSection(ctx, section)
		if err != nil {
			return domain.Digest{}, err
		}
		log.Info("section gated",
			"section", section.Name,
			"retrieved", len(section.Items),
			"kept", len(judged.Items),
			"dropped", len(judged.Dropped))
		gated = append(gated, judged)
	}

	themes, err := p.synthesizeThemes(ctx, gated)
	if err != nil {
		return domain.Digest{}, err
	}

	seenKept, err := p.store.LoadSeen(ctx, domain.KindKept)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("load seen kept: %w", err)
	}
	seenDropped, err := p.store.LoadSeen(ctx, domain.KindDropped)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("load seen dropped: %w", err)
	}

	batch := domain.Digest{
		RunID:     runID,
		Date:      day.Format(domain.DateLayout),
		TopThemes: themes,
		Sections:  gated,
	}

	digest := batch
	digest.Sections = FilterSeen(gated, seenKept, seenDropped)
	for i, section := range digest.Sections {
		log.Debug("section filtered",
			"section", section.Name,
			"new_kept", len(section.Items),
			"seen_kept", len(gated[i].Items)-len(section.Items))
	}

	if err := p.store.Save(ctx, batch); err != nil {
		return domain.Digest{}, fmt.Errorf("persist batch: %w", err)
	}

	digest.Duration = p.now().Sub(started)
	log.Info("digest run finished",
		"kept", digest.CountKept(),
		"dropped", digest.CountDropped(),
		"themes", len(themes),
		"duration", digest.Duration)

	if opts.DryRun || p.notifier == nil {
		return digest, nil
	}

	if err := p.notifier.PublishDigest(ctx, RenderDigest(digest)); err != nil {
		return digest, fmt.Errorf("publish digest: %w", err)
	}
	return digest, nil
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
