package engine

import (
	"math"

	"github.com/MJE43/econ-engine/internal/errs"
)

// Subtractive generator constants (Knuth, Seminumerical Algorithms 3.2.2).
const (
	mbig  = math.MaxInt32
	mseed = 161803398

	// ArraySize is the length of the generator's internal table. Slot 0 is unused.
	ArraySize = 56
)

// State is a seeded pseudo-random sequence. It is a plain value: copying it
// forks the sequence, and it serializes as-is into the player state blob.
//
// Counter only increases through Next and friends, so any State can be
// rebuilt from Seed by replaying Counter steps.
type State struct {
	Seed    int32            `json:"seed"`
	Counter uint64           `json:"counter"`
	Array   [ArraySize]int32 `json:"array"`
	Inext   int              `json:"inext"`
	Inextp  int              `json:"inextp"`
}

// Seed builds a fresh generator state for seed.
func Seed(seed int32) State {
	s := State{Seed: seed}

	subtraction := int32(mbig)
	if seed != math.MinInt32 {
		subtraction = seed
		if subtraction < 0 {
			subtraction = -subtraction
		}
	}
	mj := int32(mseed) - subtraction
	s.Array[55] = mj
	mk := int32(1)
	for i := 1; i < 55; i++ {
		ii := (21 * i) % 55
		s.Array[ii] = mk
		mk = mj - mk
		if mk < 0 {
			mk += mbig
		}
		mj = s.Array[ii]
	}
	for k := 1; k < 5; k++ {
		for i := 1; i < ArraySize; i++ {
			s.Array[i] -= s.Array[1+(i+30)%55]
			if s.Array[i] < 0 {
				s.Array[i] += mbig
			}
		}
	}
	s.Inext = 0
	s.Inextp = 21
	return s
}

// advance produces the next raw sample in [0, MaxInt32) and mutates the table.
func (s *State) advance() int32 {
	inext := s.Inext + 1
	if inext >= ArraySize {
		inext = 1
	}
	inextp := s.Inextp + 1
	if inextp >= ArraySize {
		inextp = 1
	}

	v := s.Array[inext] - s.Array[inextp]
	if v == mbig {
		v--
	}
	if v < 0 {
		v += mbig
	}

	s.Array[inext] = v
	s.Inext = inext
	s.Inextp = inextp
	s.Counter++
	return v
}

// Peek returns the value the next call to Next will return, without
// consuming it. Repeated calls return the same value.
func (s State) Peek() int32 {
	return s.advance()
}

// Next consumes and returns one raw value in [0, MaxInt32).
func (s *State) Next() int32 {
	return s.advance()
}

// PeekFloat returns the next value mapped into [0, 1) without consuming it.
func (s State) PeekFloat() float64 {
	return toFloat(s.advance())
}

// NextFloat consumes one value mapped into [0, 1).
func (s *State) NextFloat() float64 {
	return toFloat(s.advance())
}

// PeekRange maps the next value into [min, max) or, when inclusive, [min, max]
// without consuming it.
func (s State) PeekRange(min, max int64, inclusive bool) (int64, error) {
	return s.nextRange(min, max, inclusive)
}

// NextRange consumes one value and maps it like PeekRange.
func (s *State) NextRange(min, max int64, inclusive bool) (int64, error) {
	return s.nextRange(min, max, inclusive)
}

func (s *State) nextRange(min, max int64, inclusive bool) (int64, error) {
	if inclusive {
		if max < min {
			return 0, errs.E(errs.KindRange, "rng.Range", "max %d < min %d", max, min)
		}
		if max == math.MaxInt64 {
			return 0, errs.E(errs.KindRange, "rng.Range", "inclusive max overflows")
		}
		max++
	} else if max <= min {
		return 0, errs.E(errs.KindRange, "rng.Range", "max %d <= min %d", max, min)
	}

	span := uint64(max - min)
	offset := uint64(toFloat(s.advance()) * float64(span))
	if offset >= span {
		offset = span - 1
	}
	return min + int64(offset), nil
}

// PickWeighted consumes one value and returns an index into weights, chosen
// proportionally. Zero weights are never picked.
func (s *State) PickWeighted(weights []int64) (int, error) {
	var total int64
	for _, w := range weights {
		if w < 0 {
			return 0, errs.E(errs.KindRange, "rng.PickWeighted", "negative weight %d", w)
		}
		total += w
	}
	if total <= 0 {
		return 0, errs.E(errs.KindRange, "rng.PickWeighted", "weights sum to %d", total)
	}

	roll, err := s.NextRange(0, total, false)
	if err != nil {
		return 0, err
	}
	var cumulative int64
	for i, w := range weights {
		cumulative += w
		if roll < cumulative {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// Restore rebuilds the state from Seed and replays count steps. It is how a
// client resynchronizes after a rollback without keeping the full history.
func (s *State) Restore(count uint64) {
	fresh := Seed(s.Seed)
	for i := uint64(0); i < count; i++ {
		fresh.advance()
	}
	*s = fresh
}

func toFloat(v int32) float64 {
	return float64(v) * (1.0 / mbig)
}
