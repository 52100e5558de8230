package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// FileStore keeps the current index in memory and persists it as one
// JSON blob. Writes go through a temp file and rename so a crash never
// leaves a partially written index on disk.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current *Index

	rebuilds singleflight.Group
}

// NewFileStore returns a FileStore persisting to path. A nil logger is
// replaced with a no-op one.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:    path,
		logger:  logger.With(zap.String("component", "marketindex")),
		current: New(),
	}
}

// Load reads the persisted index, rebuilding it from entity state when
// the blob is missing or unreadable.
func (s *FileStore) Load(ctx context.Context, st store.Store) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("index blob unreadable, rebuilding", zap.Error(err))
		}
		return s.Rebuild(ctx, st)
	}
	idx := New()
	if err := json.Unmarshal(data, idx); err != nil {
		s.logger.Warn("index blob corrupt, rebuilding", zap.Error(err))
		return s.Rebuild(ctx, st)
	}
	if idx.Holdings == nil {
		idx.Holdings = make(map[string][]HoldingEntry)
	}
	s.mu.Lock()
	s.current = idx
	s.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the current index for unlocked reads.
func (s *FileStore) Snapshot() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies fn to the current index and persists the result. The
// caller must hold the market lease; Update itself only guards against
// in-process races.
func (s *FileStore) Update(fn func(idx *Index)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current.Clone()
	fn(next)
	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// persist writes the blob atomically: temp file in the same directory,
// then rename over the target.
func (s *FileStore) persist(idx *Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".market-index-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Rebuild re-derives the whole index from entity state. Concurrent
// callers share one rebuild.
func (s *FileStore) Rebuild(ctx context.Context, st store.Store) error {
	_, err, _ := s.rebuilds.Do("rebuild", func() (interface{}, error) {
		idx, err := Derive(ctx, st)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.persist(idx); err != nil {
			return nil, err
		}
		s.current = idx
		return nil, nil
	})
	return err
}

// Derive folds every player's trade records into a fresh index.
func Derive(ctx context.Context, st store.Store) (*Index, error) {
	ids, err := st.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate players: %w", err)
	}
	idx := New()
	for _, id := range ids {
		p, ok, err := st.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load player %s: %w", id, err)
		}
		if !ok {
			continue
		}
		for _, land := range p.Lands {
			if land.Trade == nil {
				continue
			}
			switch land.Trade.Status {
			case store.StatusListed:
				l := land.Trade.Listing
				idx.AddListing(ListingEntry{
					ID:           l.ID,
					OwnerID:      p.ID,
					LandID:       land.ID,
					Price:        l.Price,
					DividendRate: l.DividendRate,
					ListTime:     l.ListTime,
				})
			case store.StatusSold:
				sold := land.Trade.Sold
				idx.AddHolding(sold.HolderID, HoldingEntry{OwnerID: p.ID, LandID: land.ID})
				if sold.Resale.Listed {
					idx.AddResale(ResaleEntry{
						ID:           sold.Resale.ID,
						OwnerID:      p.ID,
						LandID:       land.ID,
						HolderID:     sold.HolderID,
						Price:        sold.Price,
						DividendRate: sold.DividendRate,
						ListTime:     sold.Resale.ListTime,
					})
				}
			}
		}
	}
	return idx, nil
}
