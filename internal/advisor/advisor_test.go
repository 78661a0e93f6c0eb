package advisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendora/socialpulse/internal/models"
)

func problemCodes(problems []Problem) []string {
	codes := make([]string, 0, len(problems))
	for _, p := range problems {
		codes = append(codes, p.Code)
	}
	return codes
}

func TestReviewCleanPost(t *testing.T) {
	a := NewRuleAdvisor()

	post := &models.Post{Caption: "launch day", Hashtags: []string{"launch", "new"}}
	media := []*models.MediaAsset{{FileType: "image/jpeg"}}

	res := a.Review(post, media, models.PlatformInstagram)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestReviewCaptionTooLong(t *testing.T) {
	a := NewRuleAdvisor()

	post := &models.Post{Caption: strings.Repeat("x", 2201), Hashtags: []string{"x"}}
	media := []*models.MediaAsset{{FileType: "image/jpeg"}}

	res := a.Review(post, media, models.PlatformInstagram)
	assert.False(t, res.Valid)
	assert.Contains(t, problemCodes(res.Errors), ProblemCaptionTooLong)
}

func TestReviewCaptionNearLimitWarnsOnly(t *testing.T) {
	a := NewRuleAdvisor()

	post := &models.Post{Caption: strings.Repeat("x", 2100), Hashtags: []string{"x"}}
	media := []*models.MediaAsset{{FileType: "image/jpeg"}}

	res := a.Review(post, media, models.PlatformInstagram)
	assert.True(t, res.Valid)
	assert.Contains(t, problemCodes(res.Warnings), WarningCaptionNearMax)
}

func TestReviewTooManyHashtags(t *testing.T) {
	a := NewRuleAdvisor()

	tags := make([]string, 31)
	for i := range tags {
		tags[i] = "tag"
	}
	post := &models.Post{Caption: "hi", Hashtags: tags}
	media := []*models.MediaAsset{{FileType: "image/jpeg"}}

	res := a.Review(post, media, models.PlatformInstagram)
	assert.False(t, res.Valid)
	assert.Contains(t, problemCodes(res.Errors), ProblemTooManyHashtags)
}

func TestReviewNoHashtagsWarnsAndRecommends(t *testing.T) {
	a := NewRuleAdvisor()

	post := &models.Post{Caption: "hi"}
	media := []*models.MediaAsset{{FileType: "image/jpeg"}}

	res := a.Review(post, media, models.PlatformInstagram)
	assert.True(t, res.Valid)
	assert.Contains(t, problemCodes(res.Warnings), WarningNoHashtags)
	assert.NotEmpty(t, res.Recommendations)
}

func TestReviewMissingMedia(t *testing.T) {
	a := NewRuleAdvisor()

	res := a.Review(&models.Post{Caption: "hi", Hashtags: []string{"x"}}, nil, models.PlatformInstagram)
	assert.False(t, res.Valid)
	assert.Contains(t, problemCodes(res.Errors), ProblemMissingMedia)
}

func TestReviewReelDurationLimit(t *testing.T) {
	a := NewRuleAdvisor()

	post := &models.Post{Caption: "hi", Hashtags: []string{"x"}, ContentType: models.ContentTypeReel}
	media := []*models.MediaAsset{{FileType: "video/mp4", DurationSec: 901}}

	res := a.Review(post, media, models.PlatformInstagram)
	assert.False(t, res.Valid)
	assert.Contains(t, problemCodes(res.Errors), ProblemVideoTooLong)
}

func TestReviewYoutubeRejectsImages(t *testing.T) {
	a := NewRuleAdvisor()

	post := &models.Post{Caption: "hi", Hashtags: []string{"x"}, ContentType: models.ContentTypeFeed}
	media := []*models.MediaAsset{{FileType: "image/png"}}

	res := a.Review(post, media, models.PlatformYoutube)
	assert.False(t, res.Valid)
	assert.Contains(t, problemCodes(res.Errors), ProblemUnsupportedMedia)
}
