package book

import "sort"

// Side is an ordered map from price-key (float64 projection of the wire
// price string) to PriceLevel, stored as a slice kept sorted ascending
// by PriceKey. Level count is typically small (tens to low hundreds),
// so a sorted slice is used in place of a balanced tree or skip list:
// lookup is an O(log L) binary search, while inserting or deleting a
// level shifts the later levels and costs O(L).
//
// Collisions under the float64 projection coalesce prices; this is
// accepted as upstream feed behaviour rather than something this type
// needs to guard against.
type Side struct {
	levels []*PriceLevel
}

// search locates the index at which priceKey is, or would be inserted, to
// keep levels sorted ascending.
func (s *Side) search(priceKey float64) int {
	return sort.Search(len(s.levels), func(i int) bool {
		return s.levels[i].PriceKey >= priceKey
	})
}

// Level returns the level at priceKey, or nil if absent.
func (s *Side) Level(priceKey float64) *PriceLevel {
	idx := s.search(priceKey)
	if idx < len(s.levels) && s.levels[idx].PriceKey == priceKey {
		return s.levels[idx]
	}
	return nil
}

// LevelOrCreate returns the level at priceKey, creating an empty one
// (keyed with the given original price string) if absent.
func (s *Side) LevelOrCreate(priceKey float64, price string) *PriceLevel {
	idx := s.search(priceKey)
	if idx < len(s.levels) && s.levels[idx].PriceKey == priceKey {
		return s.levels[idx]
	}
	lvl := &PriceLevel{PriceKey: priceKey, Price: price}
	s.levels = append(s.levels, nil)
	copy(s.levels[idx+1:], s.levels[idx:])
	s.levels[idx] = lvl
	return lvl
}

// DeleteIfEmpty removes the level at priceKey if it has no resting
// orders left; empty levels never persist.
func (s *Side) DeleteIfEmpty(priceKey float64) {
	idx := s.search(priceKey)
	if idx >= len(s.levels) || s.levels[idx].PriceKey != priceKey {
		return
	}
	if s.levels[idx].Empty() {
		s.levels = append(s.levels[:idx], s.levels[idx+1:]...)
	}
}

// Clear removes every level, used by the Snapshot Loader before
// repopulating the side from a fresh snapshot.
func (s *Side) Clear() {
	s.levels = nil
}

// Len returns the number of price levels on this side.
func (s *Side) Len() int {
	return len(s.levels)
}

// At returns the level at ascending position i (0 = lowest price), or
// nil when i is out of range.
func (s *Side) At(i int) *PriceLevel {
	if i < 0 || i >= len(s.levels) {
		return nil
	}
	return s.levels[i]
}

// Ascending returns levels in ascending price order (the side's native
// iteration order).
func (s *Side) Ascending() []*PriceLevel {
	return s.levels
}

// Descending returns levels in descending price order — the BID output
// traversal order.
func (s *Side) Descending() []*PriceLevel {
	out := make([]*PriceLevel, len(s.levels))
	for i, lvl := range s.levels {
		out[len(s.levels)-1-i] = lvl
	}
	return out
}
