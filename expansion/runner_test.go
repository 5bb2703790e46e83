package expansion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimilowe/vcmstore/blueprint"
	"github.com/dimilowe/vcmstore/content"
)

func testRegistry(t *testing.T) *blueprint.Registry {
	t.Helper()
	bp := twoByThree()
	bp.Defaults = map[string]any{"cta": "Generate captions"}
	reg, err := blueprint.NewRegistry(
		[]blueprint.Engine{
			{ID: "caption-engine", Name: "Caption Engine", ContentType: content.TypeTool},
			{ID: "guide-engine", Name: "Guide Engine", ContentType: content.TypeArticle},
		},
		[]blueprint.Blueprint{
			bp,
			{
				ID:       "guide",
				Name:     "Guide",
				EngineID: "guide-engine",
				Dimensions: []blueprint.Dimension{
					{ID: "audience", Values: []string{"coaches", "musicians"}},
				},
			},
		},
	)
	require.NoError(t, err)
	return reg
}

func testStore(t *testing.T) *content.Store {
	t.Helper()
	s, err := content.NewStore(filepath.Join(t.TempDir(), "expansion.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, store, nil)

	first, err := runner.Run(ctx, "caption")
	require.NoError(t, err)
	assert.Equal(t, 6, first.CreatedCount)
	assert.Equal(t, 0, first.SkippedCount)
	assert.Len(t, first.CreatedSlugs, 6)

	second, err := runner.Run(ctx, "caption")
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Equal(t, 6, second.SkippedCount)
	assert.Equal(t, first.CreatedSlugs, second.SkippedSlugs)
}

func TestRunPersistsShellMetadata(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, store, nil)

	_, err := runner.Run(ctx, "caption")
	require.NoError(t, err)

	rec, err := store.FindBySlug(ctx, "caption-tiktok-giveaway")
	require.NoError(t, err)
	assert.Equal(t, content.TypeTool, rec.Type)
	assert.Equal(t, content.SourceExpansion, rec.Source)
	assert.Equal(t, "caption", rec.BlueprintID)
	assert.Equal(t, "caption-engine", rec.EngineID)
	assert.Equal(t, "tiktok-growth", rec.ClusterSlug)
	assert.Equal(t, "Tiktok captions for giveaway", rec.Title)
	assert.Equal(t, "Generate captions", rec.Data["cta"])
	assert.Equal(t, "giveaway", rec.Dimensions["use_case"])
	assert.Equal(t, []string{"tiktok-captions"}, rec.LinkTags)
}

func TestRunDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, store, nil)

	_, err := store.Create(ctx, content.Record{Slug: "caption-tiktok-giveaway", Type: content.TypeTool, Title: "Hand written"})
	require.NoError(t, err)

	res, err := runner.Run(ctx, "caption")
	require.NoError(t, err)
	assert.Equal(t, 5, res.CreatedCount)
	assert.Equal(t, []string{"caption-tiktok-giveaway"}, res.SkippedSlugs)

	rec, err := store.FindBySlug(ctx, "caption-tiktok-giveaway")
	require.NoError(t, err)
	assert.Equal(t, "Hand written", rec.Title)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, store, nil)

	preview, err := runner.Preview(ctx, "caption")
	require.NoError(t, err)
	assert.True(t, preview.DryRun)
	assert.Equal(t, 6, preview.CreatedCount)
	for _, r := range preview.Results {
		assert.Equal(t, StatusWouldCreate, r.Status)
	}

	_, err = store.FindBySlug(ctx, "caption-tiktok-giveaway")
	assert.ErrorIs(t, err, content.ErrNotFound)

	_, err = runner.Run(ctx, "caption")
	require.NoError(t, err)
	preview, err = runner.Preview(ctx, "caption")
	require.NoError(t, err)
	assert.Equal(t, 0, preview.CreatedCount)
	assert.Equal(t, 6, preview.SkippedCount)
}

func TestRunUnknownBlueprint(t *testing.T) {
	runner := NewRunner(testRegistry(t), nil, testStore(t), nil)
	_, err := runner.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, blueprint.ErrNotFound)
	_, err = runner.Preview(context.Background(), "missing")
	assert.ErrorIs(t, err, blueprint.ErrNotFound)
}

func TestRunOmitsInvalidShells(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(testRegistry(t), clusterSet{}, testStore(t), nil)

	res, err := runner.Run(ctx, "caption")
	require.NoError(t, err)
	assert.Equal(t, 3, res.CreatedCount)
	assert.Len(t, res.Omitted, 3)
}

func TestRunAllAndStats(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, store, nil)

	stats, err := runner.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalBlueprints: 2, TotalPotentialShells: 8, TotalCreatedShells: 0}, stats)

	preview, err := runner.PreviewAll(ctx)
	require.NoError(t, err)
	assert.True(t, preview.DryRun)
	assert.Equal(t, 8, preview.CreatedCount)

	all, err := runner.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, all.CreatedCount)

	again, err := runner.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.CreatedCount)
	assert.Equal(t, 8, again.SkippedCount)

	summaries, stats, err := runner.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalBlueprints: 2, TotalPotentialShells: 8, TotalCreatedShells: 8}, stats)
	require.Len(t, summaries, 2)
	assert.Equal(t, "guide", summaries[1].ID)
	assert.Equal(t, content.TypeArticle, summaries[1].Type)
	assert.Equal(t, "Guide Engine", summaries[1].EngineName)
	assert.Equal(t, 2, summaries[1].Created)

	guides, err := store.ListByType(ctx, content.TypeArticle)
	require.NoError(t, err)
	assert.Len(t, guides, 2)
}

// racingStore reports every slug as absent and then loses the create race.
type racingStore struct{}

func (racingStore) FindBySlug(context.Context, string) (content.Record, error) {
	return content.Record{}, content.ErrNotFound
}

func (racingStore) Create(context.Context, content.Record) (content.Record, error) {
	return content.Record{}, content.ErrDuplicateSlug
}

func (racingStore) CountByBlueprint(context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

func TestRunTreatsDuplicateAsSkip(t *testing.T) {
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, racingStore{}, nil)
	res, err := runner.Run(context.Background(), "caption")
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreatedCount)
	assert.Equal(t, 6, res.SkippedCount)
}

type downStore struct{ racingStore }

func (downStore) FindBySlug(context.Context, string) (content.Record, error) {
	return content.Record{}, content.ErrStoreUnavailable
}

func TestRunFailsWhenStoreUnavailable(t *testing.T) {
	runner := NewRunner(testRegistry(t), clusterSet{"tiktok-growth": true}, downStore{}, nil)
	_, err := runner.Run(context.Background(), "caption")
	require.Error(t, err)
	assert.True(t, errors.Is(err, content.ErrStoreUnavailable))
}
