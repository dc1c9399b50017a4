package bundle

import (
	"context"

	"otb/internal/tour"
)

// Resolver maps a source asset name to its archive name.
type Resolver interface {
	Resolve(ctx context.Context, source string) (string, error)
}

// Rewrite replaces every asset slot in t with the archive name r resolves it
// to. Slots are visited in tour.VisitAssets order. On error t may be
// partially rewritten. Each document must be rewritten exactly once: a
// second pass would treat archive names as source names.
func Rewrite(ctx context.Context, r Resolver, t *tour.Tour) error {
	return t.VisitAssets(func(slot *tour.AssetName) error {
		name, err := r.Resolve(ctx, slot.String())
		if err != nil {
			return err
		}
		*slot = tour.AssetName(name)
		return nil
	})
}
