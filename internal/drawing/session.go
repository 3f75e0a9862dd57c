package drawing

import (
	"math"

	"github.com/google/uuid"

	"github.com/dgnsrekt/tv_overlay/internal/overlay"
)

// State names the interaction phase of a drawing session.
type State int

const (
	StateIdle State = iota
	StatePlacing
	StateBrushing
)

func (s State) String() string {
	switch s {
	case StatePlacing:
		return "placing"
	case StateBrushing:
		return "brushing"
	default:
		return "idle"
	}
}

const (
	defaultColor       = "#2962ff"
	defaultFillOpacity = 0.2
	defaultFontSize    = 14

	// channelOffsetRatio scales the price delta between the two clicks into
	// the parallel offset of a channel's second line.
	channelOffsetRatio = 0.3
)

// Session is the finite-state controller turning a serialized stream of
// pointer events into committed drawings. It holds only transient interaction
// state; committed records belong to a Collection. Not safe for concurrent use.
type Session struct {
	state   State
	tool    Kind
	pending PricePoint
	brush   []PricePoint
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State returns the current interaction phase.
func (s *Session) State() State { return s.state }

// PendingTool returns the armed tool while placing, or "" when idle.
func (s *Session) PendingTool() Kind {
	if s.state == StatePlacing {
		return s.tool
	}
	return ""
}

// ValidClickTool reports whether a kind can be placed through Click. Brush is
// excluded: it only enters through the dedicated brush lifecycle.
func ValidClickTool(k Kind) bool {
	return isSingleClickTool(k) || isTwoClickTool(k)
}

func isSingleClickTool(k Kind) bool {
	return k == KindHLine || k == KindVLine || k == KindText
}

func isTwoClickTool(k Kind) bool {
	switch k {
	case KindTrendLine, KindRay, KindArrow, KindExtendedLine,
		KindChannel, KindRectangle, KindFib, KindMeasure, KindRuler:
		return true
	}
	return false
}

// Click feeds one chart click to the session. The returned drawing is non-nil
// only when the click committed one: single-click tools commit immediately,
// two-click tools commit on their second click. A text click with an empty
// label aborts with no drawing and no state change. Switching tools mid
// placement discards the pending point and starts over with the new tool.
func (s *Session) Click(tool Kind, pt PricePoint, label string) *Drawing {
	if s.state == StateBrushing {
		return nil
	}

	if s.state == StatePlacing {
		if tool == s.tool {
			d := finalizeTwoPoint(tool, s.pending, pt)
			s.reset()
			return &d
		}
		s.reset()
	}

	switch {
	case isSingleClickTool(tool):
		d, ok := commitSingleClick(tool, pt, label)
		if !ok {
			return nil
		}
		return &d
	case isTwoClickTool(tool):
		s.state = StatePlacing
		s.tool = tool
		s.pending = pt
		return nil
	default:
		return nil
	}
}

// StartBrush begins freehand point collection, discarding any pending
// two-click placement.
func (s *Session) StartBrush(pt PricePoint) {
	s.reset()
	s.state = StateBrushing
	s.brush = []PricePoint{pt}
}

// MoveBrush appends a point to the in-progress stroke. It has no effect
// outside the brushing state.
func (s *Session) MoveBrush(pt PricePoint) {
	if s.state != StateBrushing {
		return
	}
	s.brush = append(s.brush, pt)
}

// EndBrush finishes the stroke. Strokes of at least two points commit a brush
// drawing whose points equal the collected sequence; shorter strokes are
// discarded silently.
func (s *Session) EndBrush() *Drawing {
	if s.state != StateBrushing {
		return nil
	}
	points := s.brush
	s.reset()
	if len(points) < 2 {
		return nil
	}
	d := newDrawing(KindBrush)
	d.Points = points
	return &d
}

// CancelPending discards any pending point or brush buffer and returns the
// session to idle without committing anything.
func (s *Session) CancelPending() {
	s.reset()
}

func (s *Session) reset() {
	s.state = StateIdle
	s.tool = ""
	s.pending = PricePoint{}
	s.brush = nil
}

func newDrawing(kind Kind) Drawing {
	return Drawing{
		ID:        uuid.NewString(),
		Kind:      kind,
		Color:     defaultColor,
		Visible:   true,
		LineWidth: 1,
		LineStyle: overlay.StyleSolid,
	}
}

func commitSingleClick(tool Kind, pt PricePoint, label string) (Drawing, bool) {
	d := newDrawing(tool)
	switch tool {
	case KindHLine:
		d.Price = pt.Price
	case KindVLine:
		d.Time = pt.Time
	case KindText:
		// The label prompt is the one interactive failure path: an empty or
		// cancelled label aborts the placement entirely.
		if label == "" {
			return Drawing{}, false
		}
		p := pt
		d.Start = &p
		d.Text = label
		d.FontSize = defaultFontSize
	}
	return d, true
}

func finalizeTwoPoint(tool Kind, start, end PricePoint) Drawing {
	d := newDrawing(tool)
	a, b := start, end
	d.Start = &a
	d.End = &b

	switch tool {
	case KindTrendLine, KindArrow:
		// Plain segment; for arrow the kind itself is the arrowhead hint.
	case KindRay:
		d.ExtendRight = true
	case KindExtendedLine:
		d.ExtendLeft = true
		d.ExtendRight = true
	case KindChannel:
		d.ChannelOffset = channelOffsetRatio * math.Abs(end.Price-start.Price)
		d.FillColor = defaultColor
		d.FillOpacity = defaultFillOpacity
	case KindRectangle, KindMeasure:
		d.FillColor = defaultColor
		d.FillOpacity = defaultFillOpacity
	case KindFib:
		d.FillColor = defaultColor
		d.FillOpacity = defaultFillOpacity
		d.Levels = append([]float64(nil), FibLevels...)
	case KindRuler:
		// Segment only, no fill.
	}
	return d
}
