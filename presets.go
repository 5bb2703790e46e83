package vcmstore

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/internal/registryfile"
)

//go:embed presets.yaml
var presetsYAML []byte

//go:embed presets.schema.json
var presetsSchema []byte

type preset struct {
	URL           string `json:"url"`
	Words         int    `json:"words"`
	InternalLinks *int   `json:"internal_links"`
}

// DefaultPresets returns the legacy pages compiled into the binary.
func DefaultPresets() ([]content.URL, error) {
	var doc struct {
		Presets []preset `json:"presets"`
	}
	if err := registryfile.Decode(registryfile.YAML, presetsYAML, presetsSchema, &doc); err != nil {
		return nil, fmt.Errorf("vcmstore: presets: %w", err)
	}
	out := make([]content.URL, 0, len(doc.Presets))
	for _, p := range doc.Presets {
		t, slug, ok := content.ParseURL(p.URL)
		if !ok {
			return nil, fmt.Errorf("vcmstore: presets: unrecognised url %q", p.URL)
		}
		u := content.URL{
			URL:       content.URLFor(t, slug),
			Type:      t,
			Slug:      slug,
			Source:    content.SourceLegacy,
			WordCount: p.Words,
		}
		if p.InternalLinks != nil {
			u.InternalLinks = *p.InternalLinks
			u.LinksTracked = true
		}
		out = append(out, u)
	}
	return out, nil
}

// SyncPresets inserts the app's legacy pages into the URL index and returns
// how many were new.
func (a *App) SyncPresets(ctx context.Context) (int, error) {
	return a.Store.SyncURLs(ctx, a.presets)
}
