package overlay

import (
	"encoding/json"
	"fmt"
)

// Candle is one OHLCV sample. Time is UTC seconds. Series handed to the
// evaluator are expected to be ascending by Time; validation is the caller's
// responsibility.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// LineStyle selects the stroke pattern for line-type primitives.
type LineStyle string

const (
	StyleSolid  LineStyle = "solid"
	StyleDashed LineStyle = "dashed"
	StyleDotted LineStyle = "dotted"
)

// Point is a single time/value coordinate on the chart.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Kind discriminates the visual primitive variants.
type Kind string

const (
	KindLine   Kind = "line"
	KindHLine  Kind = "hline"
	KindVLine  Kind = "vline"
	KindBox    Kind = "box"
	KindMarker Kind = "marker"
	KindLabel  Kind = "label"
	KindShade  Kind = "shade"
)

// Element is a drawable overlay primitive. The concrete set is closed: Line,
// HLine, VLine, Box, Marker, Label and Shade. Adding a new kind requires
// touching the envelope codec and the evaluator's bucket switch.
type Element interface {
	ElementKind() Kind
}

// Line is a time/value polyline. A two-point Line at constant value renders as
// a horizontal ray when its end point lies past the last candle.
type Line struct {
	ID     string    `json:"id"`
	Points []Point   `json:"points"`
	Color  string    `json:"color,omitempty"`
	Width  int       `json:"width,omitempty"`
	Style  LineStyle `json:"style,omitempty"`
	Label  string    `json:"label,omitempty"`
}

// HLine is a fixed price level, unbounded in time.
type HLine struct {
	ID    string    `json:"id"`
	Price float64   `json:"price"`
	Color string    `json:"color,omitempty"`
	Width int       `json:"width,omitempty"`
	Style LineStyle `json:"style,omitempty"`
	Label string    `json:"label,omitempty"`
}

// VLine is a fixed time, unbounded in price.
type VLine struct {
	ID    string    `json:"id"`
	Time  int64     `json:"time"`
	Color string    `json:"color,omitempty"`
	Width int       `json:"width,omitempty"`
	Style LineStyle `json:"style,omitempty"`
	Label string    `json:"label,omitempty"`
}

// Box is a time-by-price rectangle.
type Box struct {
	ID        string  `json:"id"`
	TimeStart int64   `json:"timeStart"`
	TimeEnd   int64   `json:"timeEnd"`
	PriceLow  float64 `json:"priceLow"`
	PriceHigh float64 `json:"priceHigh"`
	Color     string  `json:"color,omitempty"`
	Opacity   float64 `json:"opacity,omitempty"`
	Label     string  `json:"label,omitempty"`
}

// Marker is a point annotation with a shape and placement hint.
type Marker struct {
	ID       string  `json:"id"`
	Time     int64   `json:"time"`
	Price    float64 `json:"price"`
	Shape    string  `json:"shape,omitempty"`
	Position string  `json:"position,omitempty"`
	Color    string  `json:"color,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// Label is text anchored at a time/price point.
type Label struct {
	ID       string  `json:"id"`
	Time     int64   `json:"time"`
	Price    float64 `json:"price"`
	Text     string  `json:"text"`
	Color    string  `json:"color,omitempty"`
	FontSize int     `json:"fontSize,omitempty"`
}

// Shade is a translucent band over a time range.
type Shade struct {
	ID        string  `json:"id"`
	TimeStart int64   `json:"timeStart"`
	TimeEnd   int64   `json:"timeEnd"`
	Color     string  `json:"color,omitempty"`
	Opacity   float64 `json:"opacity,omitempty"`
	Label     string  `json:"label,omitempty"`
}

func (Line) ElementKind() Kind   { return KindLine }
func (HLine) ElementKind() Kind  { return KindHLine }
func (VLine) ElementKind() Kind  { return KindVLine }
func (Box) ElementKind() Kind    { return KindBox }
func (Marker) ElementKind() Kind { return KindMarker }
func (Label) ElementKind() Kind  { return KindLabel }
func (Shade) ElementKind() Kind  { return KindShade }

// Elements is an ordered heterogeneous list of primitives. It round-trips
// through JSON as {"kind": ..., "spec": {...}} envelopes so scripts stay
// portable declarative data.
type Elements []Element

type elementEnvelope struct {
	Kind Kind            `json:"kind"`
	Spec json.RawMessage `json:"spec"`
}

func (els Elements) MarshalJSON() ([]byte, error) {
	out := make([]elementEnvelope, 0, len(els))
	for _, el := range els {
		spec, err := json.Marshal(el)
		if err != nil {
			return nil, err
		}
		out = append(out, elementEnvelope{Kind: el.ElementKind(), Spec: spec})
	}
	return json.Marshal(out)
}

func (els *Elements) UnmarshalJSON(data []byte) error {
	var raw []elementEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := make(Elements, 0, len(raw))
	for _, env := range raw {
		el, err := decodeElement(env)
		if err != nil {
			return err
		}
		decoded = append(decoded, el)
	}
	*els = decoded
	return nil
}

func decodeElement(env elementEnvelope) (Element, error) {
	switch env.Kind {
	case KindLine:
		var v Line
		return v, json.Unmarshal(env.Spec, &v)
	case KindHLine:
		var v HLine
		return v, json.Unmarshal(env.Spec, &v)
	case KindVLine:
		var v VLine
		return v, json.Unmarshal(env.Spec, &v)
	case KindBox:
		var v Box
		return v, json.Unmarshal(env.Spec, &v)
	case KindMarker:
		var v Marker
		return v, json.Unmarshal(env.Spec, &v)
	case KindLabel:
		var v Label
		return v, json.Unmarshal(env.Spec, &v)
	case KindShade:
		var v Shade
		return v, json.Unmarshal(env.Spec, &v)
	default:
		return nil, fmt.Errorf("unknown element kind: %q", env.Kind)
	}
}

// EvaluationResult is the typed output of one script evaluation, one bucket
// per primitive kind. It is recomputed fresh on every evaluation and never
// persisted.
type EvaluationResult struct {
	ScriptID   string   `json:"script_id"`
	ScriptName string   `json:"script_name"`
	Lines      []Line   `json:"lines"`
	HLines     []HLine  `json:"hlines"`
	VLines     []VLine  `json:"vlines"`
	Boxes      []Box    `json:"boxes"`
	Markers    []Marker `json:"markers"`
	Labels     []Label  `json:"labels"`
	Shades     []Shade  `json:"shades"`
}
