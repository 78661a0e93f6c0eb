package analytics

import (
	"encoding/json"
	"math"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
)

// metricAliases maps the names platforms use to our canonical fields.
// Unknown names are ignored; missing metrics stay zero.
var metricAliases = map[string]string{
	"impressions":        "impressions",
	"views":              "impressions",
	"video_views":        "impressions",
	"plays":              "impressions",
	"reach":              "reach",
	"accounts_reached":   "reach",
	"likes":              "likes",
	"like_count":         "likes",
	"comments":           "comments",
	"comment_count":      "comments",
	"shares":             "shares",
	"share_count":        "shares",
	"saved":              "saves",
	"saves":              "saves",
	"profile_visits":     "profile_visits",
	"profile_views":      "profile_visits",
	"website_clicks":     "website_clicks",
	"total_interactions": "engagement",
}

// Normalize flattens a raw insights payload into one metrics record.
// Engagement is recomputed from components unless the platform reported
// a total directly.
func Normalize(raw *platform.RawInsightPayload) *models.AnalyticsRecord {
	rec := &models.AnalyticsRecord{}
	if raw == nil {
		return rec
	}

	reported := make(map[string]int64)

	for _, series := range raw.Series {
		canonical, ok := metricAliases[series.Name]
		if !ok {
			continue
		}
		var total float64
		for _, v := range series.Values {
			total += v.Value
		}
		reported[canonical] += int64(total)
	}

	for name, value := range raw.Totals {
		canonical, ok := metricAliases[name]
		if !ok {
			continue
		}
		reported[canonical] += int64(value)
	}

	rec.Impressions = reported["impressions"]
	rec.Reach = reported["reach"]
	rec.Likes = reported["likes"]
	rec.Comments = reported["comments"]
	rec.Shares = reported["shares"]
	rec.Saves = reported["saves"]
	rec.ProfileVisits = reported["profile_visits"]
	rec.WebsiteClicks = reported["website_clicks"]

	rec.Engagement = reported["engagement"]
	if rec.Engagement == 0 {
		rec.Engagement = rec.Likes + rec.Comments + rec.Shares + rec.Saves
	}

	if payload, err := json.Marshal(raw); err == nil {
		rec.RawPayload = payload
	}

	return rec
}

// EngagementRate is engagement over reach as a percentage, rounded to
// two decimals. Zero reach yields zero rather than a division blowup.
func EngagementRate(engagement, reach int64) float64 {
	if reach <= 0 {
		return 0
	}
	rate := float64(engagement) / float64(reach) * 100
	return math.Round(rate*100) / 100
}
