package expansion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore/blueprint"
	"github.com/dimilowe/vcmstore/content"
)

// Store is the slice of the content store the runner needs.
type Store interface {
	FindBySlug(ctx context.Context, slug string) (content.Record, error)
	Create(ctx context.Context, r content.Record) (content.Record, error)
	CountByBlueprint(ctx context.Context) (map[string]int, error)
}

// Status is the outcome for one shell in a run.
type Status string

const (
	StatusCreated     Status = "created"
	StatusSkipped     Status = "skipped"
	StatusWouldCreate Status = "would_create"
)

// ShellResult reports what happened to one shell.
type ShellResult struct {
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Type        content.Type `json:"type"`
	ClusterSlug string       `json:"clusterSlug,omitempty"`
	Status      Status       `json:"status"`
}

// Result summarises one run or preview. In a preview CreatedCount counts the
// shells that would be created.
type Result struct {
	BlueprintID  string        `json:"blueprintId,omitempty"`
	DryRun       bool          `json:"dryRun"`
	CreatedCount int           `json:"createdCount"`
	SkippedCount int           `json:"skippedCount"`
	CreatedSlugs []string      `json:"createdSlugs"`
	SkippedSlugs []string      `json:"skippedSlugs"`
	Omitted      []Omitted     `json:"omitted,omitempty"`
	Results      []ShellResult `json:"results"`
}

func newResult(id string, dryRun bool) Result {
	return Result{
		BlueprintID:  id,
		DryRun:       dryRun,
		CreatedSlugs: []string{},
		SkippedSlugs: []string{},
		Results:      []ShellResult{},
	}
}

func (r *Result) merge(o Result) {
	r.CreatedCount += o.CreatedCount
	r.SkippedCount += o.SkippedCount
	r.CreatedSlugs = append(r.CreatedSlugs, o.CreatedSlugs...)
	r.SkippedSlugs = append(r.SkippedSlugs, o.SkippedSlugs...)
	r.Omitted = append(r.Omitted, o.Omitted...)
	r.Results = append(r.Results, o.Results...)
}

// Stats is the registry-wide expansion overview.
type Stats struct {
	TotalBlueprints      int `json:"totalBlueprints"`
	TotalPotentialShells int `json:"totalPotentialShells"`
	TotalCreatedShells   int `json:"totalCreatedShells"`
}

// BlueprintSummary is one row of the admin blueprint list.
type BlueprintSummary struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	EngineID   string                `json:"engineId"`
	EngineName string                `json:"engineName"`
	Type       content.Type          `json:"type"`
	Dimensions []blueprint.Dimension `json:"dimensions"`
	Potential  int                   `json:"potential"`
	Created    int                   `json:"created"`
}

// Runner persists generated shells. It only ever creates records; existing
// records are counted as skipped and left untouched.
type Runner struct {
	blueprints *blueprint.Registry
	clusters   ClusterLookup
	store      Store
	log        *zap.Logger
}

// NewRunner wires a runner. log may be nil.
func NewRunner(blueprints *blueprint.Registry, clusters ClusterLookup, store Store, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{blueprints: blueprints, clusters: clusters, store: store, log: log.Named("expansion")}
}

// Run expands blueprint id and creates every shell that is not yet stored.
func (r *Runner) Run(ctx context.Context, id string) (Result, error) {
	return r.run(ctx, id, false)
}

// Preview reports what Run would do without writing anything.
func (r *Runner) Preview(ctx context.Context, id string) (Result, error) {
	return r.run(ctx, id, true)
}

// RunAll runs every blueprint in registry order, one after another, and
// returns the aggregate once all have finished.
func (r *Runner) RunAll(ctx context.Context) (Result, error) {
	return r.all(ctx, false)
}

// PreviewAll reports what RunAll would do without writing anything.
func (r *Runner) PreviewAll(ctx context.Context) (Result, error) {
	return r.all(ctx, true)
}

func (r *Runner) all(ctx context.Context, dryRun bool) (Result, error) {
	total := newResult("", dryRun)
	for _, bp := range r.blueprints.All() {
		res, err := r.expand(ctx, bp, dryRun)
		total.merge(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Runner) run(ctx context.Context, id string, dryRun bool) (Result, error) {
	bp, ok := r.blueprints.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", blueprint.ErrNotFound, id)
	}
	return r.expand(ctx, bp, dryRun)
}

func (r *Runner) expand(ctx context.Context, bp blueprint.Blueprint, dryRun bool) (Result, error) {
	res := newResult(bp.ID, dryRun)
	gen := GenerateAllShells(bp, r.clusters, nil)
	for _, o := range gen.Omitted {
		r.log.Warn("shell omitted",
			zap.String("blueprint", bp.ID),
			zap.String("slug", o.Slug),
			zap.Error(o.Err()))
	}
	res.Omitted = gen.Omitted

	for _, shell := range gen.Shells {
		status, err := r.apply(ctx, bp, shell, dryRun)
		if err != nil {
			return res, err
		}
		switch status {
		case StatusSkipped:
			res.SkippedCount++
			res.SkippedSlugs = append(res.SkippedSlugs, shell.Slug)
		default:
			res.CreatedCount++
			res.CreatedSlugs = append(res.CreatedSlugs, shell.Slug)
		}
		res.Results = append(res.Results, ShellResult{
			Slug:        shell.Slug,
			Title:       shell.Title,
			URL:         shell.URL(),
			Type:        shell.Type,
			ClusterSlug: shell.ClusterSlug,
			Status:      status,
		})
	}

	r.log.Info("expansion finished",
		zap.String("blueprint", bp.ID),
		zap.Bool("dry_run", dryRun),
		zap.Int("created", res.CreatedCount),
		zap.Int("skipped", res.SkippedCount),
		zap.Int("omitted", len(res.Omitted)))
	return res, nil
}

// apply checks for the shell and creates it when absent. The existence check
// only saves a write; the store's unique slug is what prevents duplicates
// when two runs race.
func (r *Runner) apply(ctx context.Context, bp blueprint.Blueprint, shell Shell, dryRun bool) (Status, error) {
	_, err := r.store.FindBySlug(ctx, shell.Slug)
	switch {
	case err == nil:
		return StatusSkipped, nil
	case !errors.Is(err, content.ErrNotFound):
		return "", fmt.Errorf("expansion: %s: %w", shell.Slug, err)
	}
	if dryRun {
		return StatusWouldCreate, nil
	}

	_, err = r.store.Create(ctx, content.Record{
		Slug:        shell.Slug,
		Type:        shell.Type,
		Title:       shell.Title,
		EngineID:    shell.EngineID,
		BlueprintID: shell.BlueprintID,
		ClusterSlug: shell.ClusterSlug,
		Source:      content.SourceExpansion,
		Data:        copyDefaults(bp.Defaults),
		Dimensions:  shell.Dimensions,
		LinkTags:    shell.LinkTags,
	})
	if errors.Is(err, content.ErrDuplicateSlug) {
		r.log.Debug("lost create race", zap.String("slug", shell.Slug))
		return StatusSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("expansion: %s: %w", shell.Slug, err)
	}
	return StatusCreated, nil
}

// Stats totals potential and created shells across every blueprint.
func (r *Runner) Stats(ctx context.Context) (Stats, error) {
	_, stats, err := r.Overview(ctx)
	return stats, err
}

// Overview returns a summary per blueprint plus the registry-wide totals.
func (r *Runner) Overview(ctx context.Context) ([]BlueprintSummary, Stats, error) {
	counts, err := r.store.CountByBlueprint(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("expansion: stats: %w", err)
	}
	var stats Stats
	summaries := []BlueprintSummary{}
	for _, bp := range r.blueprints.All() {
		s := BlueprintSummary{
			ID:         bp.ID,
			Name:       bp.Name,
			EngineID:   bp.EngineID,
			Type:       bp.ContentType,
			Dimensions: bp.Dimensions,
			Potential:  bp.PotentialShells(),
			Created:    counts[bp.ID],
		}
		if e, ok := r.blueprints.Engine(bp.EngineID); ok {
			s.EngineName = e.Name
		}
		summaries = append(summaries, s)
		stats.TotalBlueprints++
		stats.TotalPotentialShells += s.Potential
		stats.TotalCreatedShells += s.Created
	}
	return summaries, stats, nil
}

func copyDefaults(defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}
