package market

import "context"

// Summary is a read-only aggregate over the market index.
type Summary struct {
	ActiveListings   int
	ActiveResales    int
	DistinctHolders  int
	TotalListedValue int64
}

// Summarize reports the current market shape from an index snapshot. It
// takes no leases; the numbers are as fresh as any other unlocked view.
func (e *Engine) Summarize(ctx context.Context) Summary {
	idx := e.index.Snapshot()
	s := Summary{
		ActiveListings:  len(idx.Listings),
		ActiveResales:   len(idx.Resales),
		DistinctHolders: len(idx.Holdings),
	}
	for _, l := range idx.Listings {
		s.TotalListedValue += l.Price
	}
	return s
}
