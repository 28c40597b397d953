package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/attrition-cli/internal/model"
)

// Merge left-joins each secondary table onto the base table. The base keys
// on the employee id column; each secondary keys on its own declared column
// (the evaluation and survey extracts carry their own id names). Secondary
// columns already present in the base are skipped. Base rows without a match
// get null cells, and unmatched secondary rows are dropped.
func Merge(base *model.Table, baseKey string, others []*model.Table, otherKeys []string) (*model.Table, error) {
	if !base.HasColumn(baseKey) {
		return nil, eris.Errorf("ingest: merge: base extract missing key column %s", baseKey)
	}
	if len(others) != len(otherKeys) {
		return nil, eris.Errorf("ingest: merge: %d extracts but %d keys", len(others), len(otherKeys))
	}

	out := base.Clone()
	log := zap.L().Named("ingest")

	for i, other := range others {
		key := otherKeys[i]
		if !other.HasColumn(key) {
			return nil, eris.Errorf("ingest: merge: extract %d missing key column %s", i+1, key)
		}

		// Index secondary rows by key; first occurrence wins.
		idx := make(map[string]int, other.NumRows())
		for r := 0; r < other.NumRows(); r++ {
			k := joinKey(other.At(r, key))
			if k == "" {
				continue
			}
			if _, seen := idx[k]; !seen {
				idx[k] = r
			}
		}

		newCols := make([]string, 0, other.NumCols())
		for _, c := range other.Columns() {
			if !out.HasColumn(c) {
				newCols = append(newCols, c)
			}
		}

		matched := 0
		for _, c := range newCols {
			out = out.AddColumn(c)
		}
		for r := 0; r < out.NumRows(); r++ {
			sr, ok := idx[joinKey(out.At(r, baseKey))]
			if !ok {
				continue
			}
			matched++
			for _, c := range newCols {
				out.Set(r, c, other.At(sr, c))
			}
		}

		log.Info("merged extract",
			zap.Int("extract", i+1),
			zap.String("key", key),
			zap.Int("matched", matched),
			zap.Int("base_rows", out.NumRows()),
			zap.Strings("new_columns", newCols))
	}

	return out, nil
}

// joinKey renders a cell for key comparison, so "1024" matches 1024.
func joinKey(c model.Cell) string {
	return strings.TrimSpace(c.Render())
}

// ReadAndMerge parses the base extract and any secondary extracts in
// parallel, then merges them. The first spec is the base.
func ReadAndMerge(ctx context.Context, specs []ExtractSpec) (*model.Table, error) {
	if len(specs) == 0 {
		return nil, eris.New("ingest: no extracts given")
	}

	tables := make([]*model.Table, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			t, err := ReadExtract(gctx, spec)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	otherKeys := make([]string, 0, len(specs)-1)
	for _, s := range specs[1:] {
		key := s.Key
		if key == "" {
			key = specs[0].Key
		}
		otherKeys = append(otherKeys, key)
	}
	return Merge(tables[0], specs[0].Key, tables[1:], otherKeys)
}
