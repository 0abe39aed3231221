package chrono

import (
	"context"
	"fmt"

	"github.com/roach88/chronotree/internal/ir"
)

// buildAggregate persists the aggregate record summarizing frontier and
// returns it with its hash set. The frontier must already be canonical.
func buildAggregate(ctx context.Context, st Store, frontier Frontier) (ir.Record, error) {
	agg := ir.NewAggregate(frontier)
	h, err := st.Save(ctx, agg)
	if err != nil {
		return ir.Record{}, fmt.Errorf("save aggregate: %w", err)
	}
	agg.Hash = h
	return agg, nil
}
