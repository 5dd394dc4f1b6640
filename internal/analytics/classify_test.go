package analytics

import "testing"

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name  string
		slope float64
		corr  float64
		want  string
	}{
		{"strong increase", 0.01, 0.9, "Strong Increasing"},
		{"strong decrease", -0.01, -0.9, "Strong Decreasing"},
		{"moderate increase", 0.0005, 0.6, "Moderate Increasing"},
		{"moderate decrease", -0.0005, -0.6, "Moderate Decreasing"},
		{"steep but uncorrelated", 0.01, 0.3, "Stable/Unclear"},
		{"correlated but flat", 0.00005, 0.9, "Stable/Unclear"},
		{"strong slope moderate correlation", 0.01, 0.6, "Moderate Increasing"},
		{"exactly at strong threshold", 0.001, 0.7, "Moderate Increasing"},
		{"exactly at moderate threshold", 0.0001, 0.5, "Stable/Unclear"},
		{"zero everything", 0, 0, "Stable/Unclear"},
		{"mixed signs", 0.01, -0.9, "Stable/Unclear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrend(tt.slope, tt.corr); got != tt.want {
				t.Errorf("ClassifyTrend(%v, %v) = %q, want %q", tt.slope, tt.corr, got, tt.want)
			}
		})
	}
}

func TestClassifyHotspot(t *testing.T) {
	tests := []struct {
		name                string
		high, elevated, low int
		want                string
	}{
		{"three high severities", 3, 3, 0, "Critical Hotspot"},
		{"two high only", 2, 2, 0, "Average"},
		{"five elevated", 0, 5, 0, "High Risk"},
		{"two high plus three more elevated", 2, 5, 0, "High Risk"},
		{"three elevated", 0, 3, 0, "Moderate Risk"},
		{"four elevated", 1, 4, 0, "Moderate Risk"},
		{"five low prevalence", 0, 0, 5, "Low Prevalence"},
		{"four low prevalence", 0, 0, 4, "Average"},
		{"nothing notable", 0, 1, 1, "Average"},
		{"critical beats low", 3, 3, 5, "Critical Hotspot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyHotspot(tt.high, tt.elevated, tt.low); got != tt.want {
				t.Errorf("ClassifyHotspot(%d, %d, %d) = %q, want %q",
					tt.high, tt.elevated, tt.low, got, tt.want)
			}
		})
	}
}

func TestGrowthBucket(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{25, "High Growth"},
		{20, "Moderate Growth"},
		{15, "Moderate Growth"},
		{10, "Low Growth"},
		{0.5, "Low Growth"},
		{0, "Decline"},
		{-12, "Decline"},
	}
	for _, tt := range tests {
		if got := GrowthBucket(tt.pct); got != tt.want {
			t.Errorf("GrowthBucket(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestQuartileLabel(t *testing.T) {
	tests := []struct {
		q    int
		want string
	}{
		{4, "High Prevalence"},
		{3, "Medium-High Prevalence"},
		{2, "Medium-Low Prevalence"},
		{1, "Low Prevalence"},
	}
	for _, tt := range tests {
		if got := QuartileLabel(tt.q); got != tt.want {
			t.Errorf("QuartileLabel(%d) = %q, want %q", tt.q, got, tt.want)
		}
	}
}
