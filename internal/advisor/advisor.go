package advisor

import (
	"strconv"
	"unicode/utf8"

	"github.com/vendora/socialpulse/internal/models"
)

// Advisor reviews post content before it can be scheduled. Errors block
// scheduling; warnings and recommendations are surfaced but do not.
type Advisor interface {
	Review(post *models.Post, media []*models.MediaAsset, platform string) *Result
}

type Result struct {
	Valid           bool      `json:"valid"`
	Errors          []Problem `json:"errors"`
	Warnings        []Problem `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
}

type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ProblemCaptionTooLong   = "caption_too_long"
	ProblemTooManyHashtags  = "too_many_hashtags"
	ProblemMissingMedia     = "missing_media"
	ProblemVideoTooLong     = "video_too_long"
	ProblemUnsupportedMedia = "unsupported_media"

	WarningNoHashtags     = "no_hashtags"
	WarningCaptionNearMax = "caption_near_limit"
)

var captionLimits = map[string]int{
	models.PlatformInstagram: 2200,
	models.PlatformFacebook:  63206,
	models.PlatformYoutube:   5000,
	models.PlatformTiktok:    2200,
	models.PlatformWhatsapp:  1024,
}

var hashtagLimits = map[string]int{
	models.PlatformInstagram: 30,
	models.PlatformFacebook:  30,
	models.PlatformYoutube:   15,
	models.PlatformTiktok:    30,
	models.PlatformWhatsapp:  0,
}

// reelMaxSeconds caps reel length on platforms with hard limits.
var reelMaxSeconds = map[string]float64{
	models.PlatformInstagram: 900,
	models.PlatformFacebook:  90,
	models.PlatformTiktok:    600,
}

type ruleAdvisor struct{}

func NewRuleAdvisor() Advisor {
	return &ruleAdvisor{}
}

func (a *ruleAdvisor) Review(post *models.Post, media []*models.MediaAsset, platform string) *Result {
	res := &Result{}

	captionLen := utf8.RuneCountInString(post.Caption)
	if limit, ok := captionLimits[platform]; ok {
		if captionLen > limit {
			res.Errors = append(res.Errors, Problem{
				Code:    ProblemCaptionTooLong,
				Message: "caption exceeds the platform limit of " + strconv.Itoa(limit) + " characters",
			})
		} else if captionLen > limit*9/10 {
			res.Warnings = append(res.Warnings, Problem{
				Code:    WarningCaptionNearMax,
				Message: "caption is within 10% of the platform limit",
			})
		}
	}

	if limit, ok := hashtagLimits[platform]; ok && len(post.Hashtags) > limit {
		res.Errors = append(res.Errors, Problem{
			Code:    ProblemTooManyHashtags,
			Message: "at most " + strconv.Itoa(limit) + " hashtags allowed",
		})
	}

	if len(post.Hashtags) == 0 && hashtagLimits[platform] > 0 {
		res.Warnings = append(res.Warnings, Problem{
			Code:    WarningNoHashtags,
			Message: "post has no hashtags",
		})
		res.Recommendations = append(res.Recommendations,
			"add up to "+strconv.Itoa(hashtagLimits[platform])+" hashtags to improve discoverability")
	}

	if len(media) == 0 && platform != models.PlatformWhatsapp {
		res.Errors = append(res.Errors, Problem{
			Code:    ProblemMissingMedia,
			Message: "post has no media attached",
		})
	}

	for _, m := range media {
		if post.ContentType == models.ContentTypeReel {
			if !m.IsVideo() {
				res.Errors = append(res.Errors, Problem{
					Code:    ProblemUnsupportedMedia,
					Message: "reels require video media",
				})
				continue
			}
			if max, ok := reelMaxSeconds[platform]; ok && m.DurationSec > max {
				res.Errors = append(res.Errors, Problem{
					Code:    ProblemVideoTooLong,
					Message: "video is longer than the platform allows for reels",
				})
			}
		}
		if platform == models.PlatformYoutube && !m.IsVideo() {
			res.Errors = append(res.Errors, Problem{
				Code:    ProblemUnsupportedMedia,
				Message: "only video uploads are supported",
			})
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}
