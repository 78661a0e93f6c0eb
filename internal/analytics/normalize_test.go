package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vendora/socialpulse/internal/platform"
)

func TestNormalizeSeriesPayload(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{
			{Name: "impressions", Values: []platform.MetricValue{{Value: 1200}}},
			{Name: "reach", Values: []platform.MetricValue{{Value: 800}}},
			{Name: "likes", Values: []platform.MetricValue{{Value: 150}}},
			{Name: "comments", Values: []platform.MetricValue{{Value: 30}}},
			{Name: "saved", Values: []platform.MetricValue{{Value: 20}}},
		},
	}

	rec := Normalize(raw)

	assert.Equal(t, int64(1200), rec.Impressions)
	assert.Equal(t, int64(800), rec.Reach)
	assert.Equal(t, int64(150), rec.Likes)
	assert.Equal(t, int64(30), rec.Comments)
	assert.Equal(t, int64(20), rec.Saves)
	assert.Equal(t, int64(200), rec.Engagement)
	assert.NotEmpty(t, rec.RawPayload)
}

func TestNormalizeTotalsPayload(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Totals: map[string]float64{
			"views":      5000,
			"like_count": 420,
			"comments":   12,
			"shares":     8,
		},
	}

	rec := Normalize(raw)

	assert.Equal(t, int64(5000), rec.Impressions)
	assert.Equal(t, int64(420), rec.Likes)
	assert.Equal(t, int64(12), rec.Comments)
	assert.Equal(t, int64(8), rec.Shares)
	assert.Equal(t, int64(440), rec.Engagement)
}

func TestNormalizeUnknownMetricsIgnored(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{
			{Name: "quantum_resonance", Values: []platform.MetricValue{{Value: 999}}},
			{Name: "likes", Values: []platform.MetricValue{{Value: 10}}},
		},
		Totals: map[string]float64{"vibe_score": 42},
	}

	rec := Normalize(raw)

	assert.Equal(t, int64(10), rec.Likes)
	assert.Equal(t, int64(0), rec.Impressions)
	assert.Equal(t, int64(10), rec.Engagement)
}

func TestNormalizeMultiDaySeriesSummed(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{
			{Name: "impressions", Values: []platform.MetricValue{
				{Value: 100, EndTime: time.Now().AddDate(0, 0, -1)},
				{Value: 250, EndTime: time.Now()},
			}},
		},
	}

	rec := Normalize(raw)
	assert.Equal(t, int64(350), rec.Impressions)
}

func TestNormalizeReportedEngagementWins(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{
			{Name: "likes", Values: []platform.MetricValue{{Value: 10}}},
			{Name: "total_interactions", Values: []platform.MetricValue{{Value: 55}}},
		},
	}

	rec := Normalize(raw)
	assert.Equal(t, int64(55), rec.Engagement)
}

func TestNormalizeNil(t *testing.T) {
	rec := Normalize(nil)
	assert.Equal(t, int64(0), rec.Engagement)
}

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 25.0, EngagementRate(200, 800))
	assert.Equal(t, 4.17, EngagementRate(125, 3000))
	assert.Equal(t, 0.0, EngagementRate(100, 0))
	assert.Equal(t, 0.0, EngagementRate(0, 500))
}
