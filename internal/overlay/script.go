package overlay

import (
	"encoding/json"
	"fmt"
)

// GenKind discriminates the generator config variants.
type GenKind string

const (
	GenSessionVLines  GenKind = "session_vlines"
	GenPrevDayLevels  GenKind = "prev_day_levels"
	GenKillzoneShades GenKind = "killzone_shades"
)

// Generator is a parametric rule that derives primitives from candle data at
// evaluation time. Like Element, the variant set is closed.
type Generator interface {
	GeneratorKind() GenKind
}

// SessionVLines emits one vertical line per candle whose UTC wall-clock time
// matches the target hour:minute. A zero-value target means 14:30 UTC.
type SessionVLines struct {
	Hour   int       `json:"hour"`
	Minute int       `json:"minute"`
	Color  string    `json:"color,omitempty"`
	Width  int       `json:"width,omitempty"`
	Style  LineStyle `json:"style,omitempty"`
	Label  string    `json:"label,omitempty"`
}

// PrevDayLevels emits horizontal rays for the previous day's high, low, open
// and close, plus open-price rays anchored at the 05:00 and 14:30 UTC session
// candles of the current day. AnchorColor styles the session-anchor rays;
// empty falls back to a separate default so they stay distinguishable.
type PrevDayLevels struct {
	Color       string    `json:"color,omitempty"`
	Width       int       `json:"width,omitempty"`
	Style       LineStyle `json:"style,omitempty"`
	AnchorColor string    `json:"anchorColor,omitempty"`
}

// KillzoneSession is one named recurring trading-session window expressed as a
// UTC minute-of-day range [StartMinute, EndMinute).
type KillzoneSession struct {
	Name        string  `json:"name"`
	StartMinute int     `json:"startMinute"`
	EndMinute   int     `json:"endMinute"`
	Color       string  `json:"color,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// KillzoneShades emits at most one shade per (day, session) pair, spanning the
// first to last candle inside the session window.
type KillzoneShades struct {
	Sessions []KillzoneSession `json:"sessions"`
}

func (SessionVLines) GeneratorKind() GenKind  { return GenSessionVLines }
func (PrevDayLevels) GeneratorKind() GenKind  { return GenPrevDayLevels }
func (KillzoneShades) GeneratorKind() GenKind { return GenKillzoneShades }

// Generators is an ordered heterogeneous list of generator configs using the
// same envelope codec as Elements.
type Generators []Generator

type generatorEnvelope struct {
	Kind GenKind         `json:"kind"`
	Spec json.RawMessage `json:"spec"`
}

func (gens Generators) MarshalJSON() ([]byte, error) {
	out := make([]generatorEnvelope, 0, len(gens))
	for _, g := range gens {
		spec, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		out = append(out, generatorEnvelope{Kind: g.GeneratorKind(), Spec: spec})
	}
	return json.Marshal(out)
}

func (gens *Generators) UnmarshalJSON(data []byte) error {
	var raw []generatorEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := make(Generators, 0, len(raw))
	for _, env := range raw {
		g, err := decodeGenerator(env)
		if err != nil {
			return err
		}
		decoded = append(decoded, g)
	}
	*gens = decoded
	return nil
}

func decodeGenerator(env generatorEnvelope) (Generator, error) {
	switch env.Kind {
	case GenSessionVLines:
		var v SessionVLines
		return v, json.Unmarshal(env.Spec, &v)
	case GenPrevDayLevels:
		var v PrevDayLevels
		return v, json.Unmarshal(env.Spec, &v)
	case GenKillzoneShades:
		var v KillzoneShades
		return v, json.Unmarshal(env.Spec, &v)
	default:
		return nil, fmt.Errorf("unknown generator kind: %q", env.Kind)
	}
}

// ChartScript is a portable overlay definition: static primitives plus
// generator configs. It is pure declarative data and is never mutated by the
// evaluator. An empty Symbol means the script applies to all symbols.
type ChartScript struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Symbol     string     `json:"symbol,omitempty"`
	Visible    bool       `json:"visible"`
	Elements   Elements   `json:"elements"`
	Generators Generators `json:"generators"`
}

// AppliesTo reports whether the script is in scope for the given symbol.
func (s ChartScript) AppliesTo(symbol string) bool {
	return s.Symbol == "" || s.Symbol == symbol
}
