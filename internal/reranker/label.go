package reranker

// Relevance label names shared by both presets.
const (
	LabelVeryHigh = "very high"
	LabelHigh     = "high"
	LabelMedium   = "medium"
	LabelLow      = "low"
)

// LabelPreset maps a normalized relevance score onto a human-readable label.
// Comparisons are strict: a score exactly on a boundary falls into the tier
// below it (0.9 is "high" under the strict preset, not "very high").
type LabelPreset struct {
	VeryHigh float64
	High     float64
	Medium   float64
}

// PresetStrict is used by the report-schema context formatter.
var PresetStrict = LabelPreset{VeryHigh: 0.9, High: 0.7, Medium: 0.5}

// PresetLenient is used by the vision-schema context formatter, whose chunks
// score systematically lower because page-level extraction mixes topics.
var PresetLenient = LabelPreset{VeryHigh: 0.8, High: 0.6, Medium: 0.4}

// Label returns the relevance label for a normalized score.
func (p LabelPreset) Label(score float64) string {
	switch {
	case score > p.VeryHigh:
		return LabelVeryHigh
	case score > p.High:
		return LabelHigh
	case score > p.Medium:
		return LabelMedium
	default:
		return LabelLow
	}
}
