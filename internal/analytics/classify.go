package analytics

// Classification thresholds, kept as named constants so each decision table
// is testable on its own.
const (
	StrongSlope         = 0.001
	StrongCorrelation   = 0.7
	ModerateSlope       = 0.0001
	ModerateCorrelation = 0.5

	HighSeverityZ = 2.0
	ElevatedZ     = 1.0
	LowZ          = -1.0

	CriticalHighCount      = 3
	HighRiskElevated       = 5
	ModerateElevated       = 3
	LowPrevalenceCount     = 5
	MinDisordersPerCountry = 5

	HighGrowthPct     = 20.0
	ModerateGrowthPct = 10.0
)

var trendRules = []struct {
	slope float64
	corr  float64
	sign  int
	label string
}{
	{StrongSlope, StrongCorrelation, +1, "Strong Increasing"},
	{StrongSlope, StrongCorrelation, -1, "Strong Decreasing"},
	{ModerateSlope, ModerateCorrelation, +1, "Moderate Increasing"},
	{ModerateSlope, ModerateCorrelation, -1, "Moderate Decreasing"},
}

// ClassifyTrend maps a least-squares slope and Pearson correlation to a
// trend tag. Rules are ordered strongest first.
func ClassifyTrend(slope, corr float64) string {
	for _, r := range trendRules {
		switch {
		case r.sign > 0 && slope > r.slope && corr > r.corr:
			return r.label
		case r.sign < 0 && slope < -r.slope && corr < -r.corr:
			return r.label
		}
	}
	return "Stable/Unclear"
}

var hotspotRules = []struct {
	applies func(high, elevated, low int) bool
	label   string
}{
	{func(high, _, _ int) bool { return high >= CriticalHighCount }, "Critical Hotspot"},
	{func(_, elevated, _ int) bool { return elevated >= HighRiskElevated }, "High Risk"},
	{func(_, elevated, _ int) bool { return elevated >= ModerateElevated }, "Moderate Risk"},
	{func(_, _, low int) bool { return low >= LowPrevalenceCount }, "Low Prevalence"},
}

// ClassifyHotspot maps a country's severity counts to a risk tag. The
// elevated count includes high-severity disorders (z > 2 implies z > 1), so
// a country with only two high-severity disorders and nothing else elevated
// stays Average.
func ClassifyHotspot(high, elevated, low int) string {
	for _, r := range hotspotRules {
		if r.applies(high, elevated, low) {
			return r.label
		}
	}
	return "Average"
}

// GrowthBucket tags a relative growth percentage the way the original
// growth analysis did.
func GrowthBucket(pct float64) string {
	switch {
	case pct > HighGrowthPct:
		return "High Growth"
	case pct > ModerateGrowthPct:
		return "Moderate Growth"
	case pct > 0:
		return "Low Growth"
	default:
		return "Decline"
	}
}

// QuartileLabel names an order-based quartile; 4 holds the highest means.
func QuartileLabel(q int) string {
	switch q {
	case 4:
		return "High Prevalence"
	case 3:
		return "Medium-High Prevalence"
	case 2:
		return "Medium-Low Prevalence"
	default:
		return "Low Prevalence"
	}
}
