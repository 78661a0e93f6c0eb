package platform

import "time"

// RawInsightPayload is the unparsed-but-decoded shape of a platform
// insights response. Platforms report either a series of named metrics
// (Graph API style) or a flat totals hash (TikTok/YouTube style); a
// payload may carry both. Normalization happens in the analytics package.
type RawInsightPayload struct {
	Series []MetricSeries     `json:"data,omitempty"`
	Totals map[string]float64 `json:"totals,omitempty"`
}

type MetricSeries struct {
	Name   string        `json:"name"`
	Values []MetricValue `json:"values"`
}

type MetricValue struct {
	Value   float64   `json:"value"`
	EndTime time.Time `json:"end_time"`
}
