package drawing

import "github.com/dgnsrekt/tv_overlay/internal/overlay"

// Kind discriminates the drawing variants. Unlike overlay primitives the
// variants share most of their fields, so a single record with a discriminant
// keeps the in-place mutation API simple.
type Kind string

const (
	KindHLine        Kind = "hline"
	KindVLine        Kind = "vline"
	KindTrendLine    Kind = "trendline"
	KindRay          Kind = "ray"
	KindArrow        Kind = "arrow"
	KindExtendedLine Kind = "extendedline"
	KindChannel      Kind = "channel"
	KindRectangle    Kind = "rectangle"
	KindFib          Kind = "fib"
	KindMeasure      Kind = "measure"
	KindText         Kind = "text"
	KindRuler        Kind = "ruler"
	KindBrush        Kind = "brush"
)

// PricePoint is a time/price coordinate captured from a pointer event.
type PricePoint struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
}

// FibLevels is the fixed ascending sequence every fib drawing carries.
var FibLevels = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1.0}

// Drawing is one committed annotation. Which geometry fields are meaningful
// depends on Kind: hline uses Price, vline uses Time, two-point kinds use
// Start/End, brush uses Points, text uses Start plus Text/FontSize.
type Drawing struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	Color       string            `json:"color,omitempty"`
	Visible     bool              `json:"visible"`
	Locked      bool              `json:"locked"`
	LineWidth   int               `json:"lineWidth"`
	LineStyle   overlay.LineStyle `json:"lineStyle"`
	ExtendLeft  bool              `json:"extendLeft"`
	ExtendRight bool              `json:"extendRight"`

	Price  float64      `json:"price,omitempty"`
	Time   int64        `json:"time,omitempty"`
	Start  *PricePoint  `json:"start,omitempty"`
	End    *PricePoint  `json:"end,omitempty"`
	Points []PricePoint `json:"points,omitempty"`

	Text     string `json:"text,omitempty"`
	FontSize int    `json:"fontSize,omitempty"`

	FillColor   string  `json:"fillColor,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`

	// ChannelOffset is the parallel price offset of a channel's second line.
	ChannelOffset float64 `json:"channelOffset,omitempty"`

	Levels []float64 `json:"levels,omitempty"`
}

// ApplyDefaults fills fields added to the schema after a record was first
// saved, leaving present values untouched. Locked, ExtendLeft and ExtendRight
// default to false through their zero values.
func (d *Drawing) ApplyDefaults() {
	if d.LineWidth == 0 {
		d.LineWidth = 1
	}
	if d.LineStyle == "" {
		d.LineStyle = overlay.StyleSolid
	}
}

// SavedSetVersion is the current on-disk schema version.
const SavedSetVersion = 1

// SavedSet is the versioned array a drawing collection round-trips as.
type SavedSet struct {
	Version  int       `json:"version"`
	Drawings []Drawing `json:"drawings"`
}

// Migrate defaults every record for fields introduced after it was saved, so
// older sets remain usable after the schema gains new optional fields.
func (s *SavedSet) Migrate() {
	for i := range s.Drawings {
		s.Drawings[i].ApplyDefaults()
	}
	if s.Version == 0 {
		s.Version = SavedSetVersion
	}
}
