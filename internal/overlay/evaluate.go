package overlay

// Evaluate turns a script and a candle series into concrete drawable geometry.
// It is pure and deterministic: identical (script, candles) input yields an
// identical result, including ids and bucket order, so downstream diffing can
// rely on id stability across re-evaluation. Insufficient data degrades to
// empty buckets, never an error.
func Evaluate(script ChartScript, candles []Candle) EvaluationResult {
	res := EvaluationResult{ScriptID: script.ID, ScriptName: script.Name}

	for _, el := range script.Elements {
		switch v := el.(type) {
		case Line:
			res.Lines = append(res.Lines, v)
		case HLine:
			res.HLines = append(res.HLines, v)
		case VLine:
			res.VLines = append(res.VLines, v)
		case Box:
			res.Boxes = append(res.Boxes, v)
		case Marker:
			res.Markers = append(res.Markers, v)
		case Label:
			res.Labels = append(res.Labels, v)
		case Shade:
			res.Shades = append(res.Shades, v)
		}
	}

	buckets := PartitionDays(candles)
	for _, gen := range script.Generators {
		switch g := gen.(type) {
		case SessionVLines:
			res.VLines = append(res.VLines, g.run(script.ID, candles)...)
		case PrevDayLevels:
			lines, labels := g.run(script.ID, candles, buckets)
			res.Lines = append(res.Lines, lines...)
			res.Labels = append(res.Labels, labels...)
		case KillzoneShades:
			res.Shades = append(res.Shades, g.run(script.ID, buckets)...)
		}
	}
	return res
}
