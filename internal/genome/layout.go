package genome

import (
	"fmt"
	"math"
	"math/rand"
)

// Segment names in the v1 layout.
const (
	SegmentAction   = "action"
	SegmentScoring  = "scoring"
	SegmentPhase    = "phase"
	SegmentCategory = "category"
	SegmentEarly    = "early"
	SegmentMid      = "mid"
	SegmentLate     = "late"
	SegmentWeb      = "web"
)

type Segment struct {
	Name   string
	Offset int
	Length int
}

// Layout names contiguous gene ranges. Strategy code reads genes only through
// Decode, never by raw index.
type Layout struct {
	Version  int
	Segments []Segment
}

// V1 is the 60-gene layout.
func V1() Layout {
	return newLayout(1,
		Segment{Name: SegmentAction, Length: len(ActionNames)},
		Segment{Name: SegmentScoring, Length: scoringGenes},
		Segment{Name: SegmentPhase, Length: phaseGenes},
		Segment{Name: SegmentCategory, Length: NumCategories},
		Segment{Name: SegmentEarly, Length: NumCategories},
		Segment{Name: SegmentMid, Length: NumCategories},
		Segment{Name: SegmentLate, Length: NumCategories},
		Segment{Name: SegmentWeb, Length: NumCategories + 2},
	)
}

// LayoutFor returns the layout registered for version.
func LayoutFor(version int) (Layout, error) {
	switch version {
	case 0, 1:
		return V1(), nil
	default:
		return Layout{}, fmt.Errorf("unsupported genome layout version %d", version)
	}
}

func newLayout(version int, segments ...Segment) Layout {
	offset := 0
	for i := range segments {
		segments[i].Offset = offset
		offset += segments[i].Length
	}
	return Layout{Version: version, Segments: segments}
}

// Len is the number of genes the layout covers.
func (l Layout) Len() int {
	if len(l.Segments) == 0 {
		return 0
	}
	last := l.Segments[len(l.Segments)-1]
	return last.Offset + last.Length
}

// Validate checks that segments are named uniquely and tile the genome
// without gaps.
func (l Layout) Validate() error {
	seen := make(map[string]struct{}, len(l.Segments))
	next := 0
	for _, s := range l.Segments {
		if s.Name == "" {
			return fmt.Errorf("layout v%d: unnamed segment at offset %d", l.Version, s.Offset)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("layout v%d: duplicate segment %q", l.Version, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Length <= 0 {
			return fmt.Errorf("layout v%d: segment %q has length %d", l.Version, s.Name, s.Length)
		}
		if s.Offset != next {
			return fmt.Errorf("layout v%d: segment %q starts at %d, want %d", l.Version, s.Name, s.Offset, next)
		}
		next += s.Length
	}
	return nil
}

func (l Layout) Segment(name string) (Segment, bool) {
	for _, s := range l.Segments {
		if s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}

// Genes returns the slice of g covered by the named segment.
func (l Layout) Genes(g Genome, name string) ([]float64, error) {
	s, ok := l.Segment(name)
	if !ok {
		return nil, fmt.Errorf("layout v%d: unknown segment %q", l.Version, name)
	}
	if s.Offset+s.Length > len(g) {
		return nil, fmt.Errorf("%w: segment %q needs %d genes, genome has %d", ErrLengthMismatch, name, s.Offset+s.Length, len(g))
	}
	return g[s.Offset : s.Offset+s.Length], nil
}

// Conform pads a short genome with random genes or truncates a long one.
// The bool reports whether g already had the right length.
func (l Layout) Conform(g Genome, rng *rand.Rand) (Genome, bool) {
	n := l.Len()
	switch {
	case len(g) == n:
		return g.Clone(), true
	case len(g) > n:
		return g[:n].Clone(), false
	default:
		out := make(Genome, 0, n)
		out = append(out, g...)
		return append(out, Random(rng, n-len(g))...), false
	}
}

// Scale maps a gene from [-1, 1] linearly onto [lo, hi].
func Scale(gene, lo, hi float64) float64 {
	t := (clamp(gene) + 1) / 2
	return lo*(1-t) + hi*t
}

// ScaleInt maps a gene onto the integers lo..hi inclusive.
func ScaleInt(gene float64, lo, hi int) int {
	v := int(math.Round(Scale(gene, float64(lo), float64(hi))))
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
