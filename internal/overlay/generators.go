package overlay

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultSessionHour   = 14
	defaultSessionMinute = 30

	// Rays extend this many average candle intervals past the last candle so
	// they reach well beyond the right edge at any zoom level.
	rayExtensionBars    = 200
	fallbackIntervalSec = 60

	// Fixed UTC minute-of-day anchors for the two recurring session opens
	// scanned by PrevDayLevels. Deliberately not DST-adjusted.
	anchorEarlyMinute = 5 * 60
	anchorLateMinute  = 14*60 + 30

	defaultLevelColor  = "#787b86"
	defaultAnchorColor = "#2962ff"
)

func minuteOfDay(ts int64) int {
	t := time.Unix(ts, 0).UTC()
	return t.Hour()*60 + t.Minute()
}

// rayEnd returns the fixed right-edge extension point for horizontal rays:
// the last candle's time plus 200 intervals, where the interval is the gap
// between the last two candles (60s when only one candle exists).
func rayEnd(candles []Candle) int64 {
	last := candles[len(candles)-1].Time
	interval := int64(fallbackIntervalSec)
	if len(candles) >= 2 {
		interval = last - candles[len(candles)-2].Time
	}
	return last + rayExtensionBars*interval
}

func (g SessionVLines) run(scriptID string, candles []Candle) []VLine {
	hour, minute := g.Hour, g.Minute
	if hour == 0 && minute == 0 {
		hour, minute = defaultSessionHour, defaultSessionMinute
	}
	label := g.Label
	if label == "" {
		label = fmt.Sprintf("%02d:%02d", hour, minute)
	}

	var out []VLine
	seen := make(map[int64]bool)
	for _, c := range candles {
		t := time.Unix(c.Time, 0).UTC()
		if t.Hour() != hour || t.Minute() != minute {
			continue
		}
		// Duplicate candle timestamps in the input must not double-emit.
		if seen[c.Time] {
			continue
		}
		seen[c.Time] = true
		out = append(out, VLine{
			ID:    fmt.Sprintf("%s_svl_%d", scriptID, c.Time),
			Time:  c.Time,
			Color: g.Color,
			Width: g.Width,
			Style: g.Style,
			Label: label,
		})
	}
	return out
}

type levelRay struct {
	key   string
	label string
	price float64
	start int64
	color string
}

func (g PrevDayLevels) run(scriptID string, candles []Candle, buckets []DayBucket) ([]Line, []Label) {
	// Fewer than two distinct days is a normal empty-result case.
	if len(buckets) < 2 {
		return nil, nil
	}
	prev := buckets[len(buckets)-2]
	cur := buckets[len(buckets)-1]

	pdh := prev.Candles[0].High
	pdl := prev.Candles[0].Low
	for _, c := range prev.Candles {
		if c.High > pdh {
			pdh = c.High
		}
		if c.Low < pdl {
			pdl = c.Low
		}
	}
	pdo := prev.Candles[0].Open
	pdc := prev.Candles[len(prev.Candles)-1].Close

	levelColor := g.Color
	if levelColor == "" {
		levelColor = defaultLevelColor
	}
	anchorColor := g.AnchorColor
	if anchorColor == "" {
		anchorColor = defaultAnchorColor
	}
	width := g.Width
	if width == 0 {
		width = 1
	}
	style := g.Style
	if style == "" {
		style = StyleSolid
	}

	dayStart := cur.Candles[0].Time
	end := rayEnd(candles)

	rays := []levelRay{
		{key: "pdh", label: "PDH", price: pdh, start: dayStart, color: levelColor},
		{key: "pdl", label: "PDL", price: pdl, start: dayStart, color: levelColor},
		{key: "pdo", label: "PDO", price: pdo, start: dayStart, color: levelColor},
		{key: "pdc", label: "PDC", price: pdc, start: dayStart, color: levelColor},
	}

	// Session-open anchors: the first current-day candle at or after each fixed
	// UTC anchor contributes an open-price ray starting at that candle itself.
	anchors := []struct {
		key    string
		label  string
		minute int
	}{
		{key: "open_0500", label: "05:00 Open", minute: anchorEarlyMinute},
		{key: "open_1430", label: "14:30 Open", minute: anchorLateMinute},
	}
	for _, a := range anchors {
		for _, c := range cur.Candles {
			if minuteOfDay(c.Time) >= a.minute {
				rays = append(rays, levelRay{key: a.key, label: a.label, price: c.Open, start: c.Time, color: anchorColor})
				break
			}
		}
	}

	lines := make([]Line, 0, len(rays))
	labels := make([]Label, 0, len(rays))
	for _, r := range rays {
		lines = append(lines, Line{
			ID: fmt.Sprintf("%s_pd_%s", scriptID, r.key),
			Points: []Point{
				{Time: r.start, Value: r.price},
				{Time: end, Value: r.price},
			},
			Color: r.color,
			Width: width,
			Style: style,
			Label: r.label,
		})
		labels = append(labels, Label{
			ID:    fmt.Sprintf("%s_pd_%s_label", scriptID, r.key),
			Time:  end,
			Price: r.price,
			Text:  r.label,
			Color: r.color,
		})
	}
	return lines, labels
}

// sanitizeSessionName lowers a session name into an id-safe token.
func sanitizeSessionName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (g KillzoneShades) run(scriptID string, buckets []DayBucket) []Shade {
	var out []Shade
	for _, bucket := range buckets {
		for _, session := range g.Sessions {
			var first, last int64
			found := false
			for _, c := range bucket.Candles {
				m := minuteOfDay(c.Time)
				if m < session.StartMinute || m >= session.EndMinute {
					continue
				}
				if !found {
					first = c.Time
					found = true
				}
				last = c.Time
			}
			if !found {
				continue
			}
			out = append(out, Shade{
				ID:        fmt.Sprintf("%s_kz_%s_%s", scriptID, sanitizeSessionName(session.Name), bucket.Date),
				TimeStart: first,
				TimeEnd:   last,
				Color:     session.Color,
				Opacity:   session.Opacity,
				Label:     session.Name,
			})
		}
	}
	return out
}
