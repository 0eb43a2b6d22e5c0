package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/withObsrvr/rxnspace/internal/component"
	"github.com/withObsrvr/rxnspace/internal/config"
	"github.com/withObsrvr/rxnspace/internal/logging"
	"github.com/withObsrvr/rxnspace/internal/source"
	"github.com/withObsrvr/rxnspace/internal/tables"
)

// loadComponents reads every configured component concurrently. Results keep
// the configured order, which fixes the component indices.
func (r *Runner) loadComponents(ctx context.Context) ([]LoadedComponent, error) {
	comps := r.cfg.Space.Components
	loaded := make([]LoadedComponent, len(comps))

	limit := r.cfg.Space.LoadWorkers
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, cc := range comps {
		i, cc := i, cc
		g.Go(func() error {
			lc, err := r.loadComponent(gctx, i+1, cc)
			if err != nil {
				return err
			}
			loaded[i] = *lc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// loadComponent reads and parses one component. The source decodes .zst
// names, so the checksum covers the logical CSV bytes.
func (r *Runner) loadComponent(ctx context.Context, index int, cc config.ComponentConfig) (*LoadedComponent, error) {
	name := componentName(cc)
	log := logging.ComponentLogger(r.log, index, cc.Path)

	rc, err := r.src.Open(ctx, cc.Path)
	if err != nil {
		return nil, fmt.Errorf("component %d: %w", index, err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("component %d: read %s: %w", index, cc.Path, err)
	}

	table, err := component.Load(bytes.NewReader(raw), index, component.Declaration{
		Name:           name,
		IDColumn:       cc.IDColumn,
		FeatureColumns: cc.FeatureColumns,
	})
	if err != nil {
		return nil, fmt.Errorf("component %d (%s): %w", index, cc.Path, err)
	}

	log.Debug("loaded component",
		"records", table.Len(),
		"features", table.Width(),
		"bytes", len(raw),
	)

	return &LoadedComponent{
		Table:    table,
		Source:   cc.Path,
		Checksum: tables.ComputeChecksum(raw),
		Bytes:    int64(len(raw)),
	}, nil
}

// componentName is the declared name, or the file name without extensions.
func componentName(cc config.ComponentConfig) string {
	if cc.Name != "" {
		return cc.Name
	}
	base := path.Base(strings.ReplaceAll(cc.Path, "\\", "/"))
	if source.IsCompressed(base) {
		base = strings.TrimSuffix(base, ".zst")
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
