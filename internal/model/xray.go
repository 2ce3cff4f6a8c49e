package model

// XrayResult is the vision service's verdict on a single chest X-ray.
type XrayResult struct {
	RiskLevel  string  `json:"risk_level"`
	Confidence float64 `json:"confidence"`
	HeatmapURL string  `json:"heatmap_url,omitempty"`
	Note       string  `json:"note,omitempty"`
}
