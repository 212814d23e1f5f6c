package maintenance

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Thresholds of the insert/evict policy.
const (
	// LowWatermark is the row count below which the worker always inserts.
	LowWatermark = 10
	// HighWatermark is the row count from which the worker always evicts.
	HighWatermark = 20
	// InsertProbability is the chance of inserting between the watermarks.
	InsertProbability = 0.5
)

// Action is the mutation chosen for a cycle.
type Action int

const (
	// ActionNone means no mutation was attempted, because the read failed.
	ActionNone Action = iota
	// ActionInsert adds one row.
	ActionInsert
	// ActionEvict removes the row with the smallest id.
	ActionEvict
)

// String returns the action name used in logs and metric attributes.
func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionEvict:
		return "evict"
	default:
		return "none"
	}
}

// Decide picks the mutation for a table holding count rows, given a
// uniform random value in [0,1).
func Decide(count int64, random float64) Action {
	switch {
	case count < LowWatermark:
		return ActionInsert
	case count < HighWatermark && random < InsertProbability:
		return ActionInsert
	default:
		return ActionEvict
	}
}

// Digest returns the lowercase hex xxhash64 of the raw IEEE-754 bits of
// random. The same input always yields the same text.
func Digest(random float64) string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(random))
	return strconv.FormatUint(xxhash.Sum64(buf[:]), 16)
}
