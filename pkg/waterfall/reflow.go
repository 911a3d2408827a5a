package waterfall

import (
	"math/rand"
	"sort"

	"waterfall/pkg/html"
)

// ReflowKind is the layout work a data-length change calls for.
type ReflowKind int

const (
	ReflowNone ReflowKind = iota
	// ReflowAppend places the items from Start onward.
	ReflowAppend
	// ReflowRebuild clears the columns and places every item.
	ReflowRebuild
)

func (k ReflowKind) String() string {
	switch k {
	case ReflowAppend:
		return "append"
	case ReflowRebuild:
		return "rebuild"
	}
	return "none"
}

// Reflow is a data-length reflow decision.
type Reflow struct {
	Kind  ReflowKind
	Start int
	// Cursor is the layout cursor after the decision (a shrink below the
	// cursor resets it to 0).
	Cursor int
}

// DecideReflow picks the reflow for a data length change from oldLen to
// newLen. A batch in flight suppresses the change entirely.
func DecideReflow(oldLen, newLen, cursor int, resizing bool) Reflow {
	if resizing {
		return Reflow{Kind: ReflowNone, Cursor: cursor}
	}
	if newLen < cursor {
		cursor = 0
	}
	if newLen <= oldLen && newLen <= cursor {
		return Reflow{Kind: ReflowNone, Cursor: cursor}
	}
	if cursor > 0 {
		return Reflow{Kind: ReflowAppend, Start: cursor, Cursor: cursor}
	}
	return Reflow{Kind: ReflowRebuild, Cursor: cursor}
}

// shuffle reorders cards with a random comparator. The order is not a
// uniform permutation.
func shuffle(rng *rand.Rand, cards []*html.Node) {
	sort.Slice(cards, func(i, j int) bool {
		return rng.Float64()-0.5 < 0
	})
}
