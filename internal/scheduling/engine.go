package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/repository"
)

// hourSet holds the canonical high-engagement posting hours for one
// platform, split by day type.
type hourSet struct {
	Weekday []int
	Weekend []int
}

var optimalHours = map[string]hourSet{
	models.PlatformInstagram: {Weekday: []int{9, 11, 13, 17, 19}, Weekend: []int{10, 12, 15, 19}},
	models.PlatformFacebook:  {Weekday: []int{8, 10, 12, 15, 18}, Weekend: []int{11, 13, 16}},
	models.PlatformYoutube:   {Weekday: []int{12, 17, 20}, Weekend: []int{10, 15, 20}},
	models.PlatformTiktok:    {Weekday: []int{7, 10, 16, 19, 22}, Weekend: []int{9, 12, 19}},
	models.PlatformWhatsapp:  {Weekday: []int{9, 12, 18, 20}, Weekend: []int{10, 14, 20}},
}

var dailyPostCaps = map[string]int{
	models.PlatformInstagram: 5,
	models.PlatformFacebook:  8,
	models.PlatformYoutube:   3,
	models.PlatformTiktok:    4,
	models.PlatformWhatsapp:  6,
}

const (
	lookAheadDays = 7
	// slotCapacity is the max posts allowed within the ±30 minute window
	// around a candidate before the slot counts as taken.
	slotCapacity  = 2
	slotHalfWidth = 30 * time.Minute
	minLeadTime   = time.Hour
)

const (
	ConflictDailyLimitExceeded = "daily_limit_exceeded"
	ConflictPostsTooClose      = "posts_too_close"
)

type Conflict struct {
	Kind     string    `json:"kind"`
	Platform string    `json:"platform"`
	Date     string    `json:"date"`
	PostIDs  []int64   `json:"post_ids"`
	Message  string    `json:"message"`
	At       time.Time `json:"at,omitempty"`
}

// ScheduleSlot is a scored candidate time, recomputed on demand and
// never persisted.
type ScheduleSlot struct {
	Platform    string    `json:"platform"`
	At          time.Time `json:"at"`
	Score       int       `json:"score"`
	Competition int       `json:"competition"`
}

// ScheduleStore is the read-only slice of post storage the engine needs.
// The engine proposes and validates; it never mutates post state.
type ScheduleStore interface {
	ListScheduledTimes(ctx context.Context, platform string, from, to time.Time) ([]time.Time, error)
	ListScheduledByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*repository.ScheduledPost, error)
}

type Engine struct {
	store ScheduleStore
}

func NewEngine(store ScheduleStore) *Engine {
	return &Engine{store: store}
}

func hoursFor(platform string, t time.Time) []int {
	set, ok := optimalHours[platform]
	if !ok {
		set = optimalHours[models.PlatformInstagram]
	}
	if isWeekend(t) {
		return set.Weekend
	}
	return set.Weekday
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ProposeOptimalTime scans the next seven days for the first canonical
// hour whose slot is still available. If every candidate is taken it
// falls back to tomorrow 09:00 local.
func (e *Engine) ProposeOptimalTime(ctx context.Context, platform, contentType, timezone string, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	from = from.In(loc)

	scheduled, err := e.store.ListScheduledTimes(ctx, platform, from, from.AddDate(0, 0, lookAheadDays))
	if err != nil {
		return time.Time{}, fmt.Errorf("error loading schedule load: %w", err)
	}

	for day := 0; day < lookAheadDays; day++ {
		date := from.AddDate(0, 0, day)
		for _, hour := range hoursFor(platform, date) {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
			if candidate.Before(from.Add(minLeadTime)) {
				continue
			}
			if countWithin(scheduled, candidate, slotHalfWidth) >= slotCapacity {
				continue
			}
			return candidate, nil
		}
	}

	tomorrow := from.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, loc), nil
}

func countWithin(times []time.Time, at time.Time, halfWidth time.Duration) int {
	count := 0
	for _, t := range times {
		d := t.Sub(at)
		if d < 0 {
			d = -d
		}
		if d <= halfWidth {
			count++
		}
	}
	return count
}

// ScoreSlot rates a candidate time from 0 to 100 for presentation.
func (e *Engine) ScoreSlot(platform string, at time.Time, contentType string) int {
	score := 50

	hours := hoursFor(platform, at)
	if containsHour(hours, at.Hour()) {
		score += 30
	} else if nearOptimalHour(hours, at.Hour()) {
		score += 15
	}

	switch at.Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
		score += 10
	case time.Friday:
		score += 5
	default:
		score -= 5
	}

	switch contentType {
	case models.ContentTypeStory:
		if at.Hour() >= 18 && at.Hour() <= 22 {
			score += 5
		}
	case models.ContentTypeReel:
		if at.Hour() >= 19 && at.Hour() <= 21 {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

func nearOptimalHour(hours []int, hour int) bool {
	for _, h := range hours {
		if hour == h-1 || hour == h+1 {
			return true
		}
	}
	return false
}

// SuggestSlots scores every canonical hour across the window so callers
// can present ranked alternatives.
func (e *Engine) SuggestSlots(ctx context.Context, platform, contentType, timezone string, from time.Time, limit int) ([]*ScheduleSlot, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	from = from.In(loc)

	scheduled, err := e.store.ListScheduledTimes(ctx, platform, from, from.AddDate(0, 0, lookAheadDays))
	if err != nil {
		return nil, fmt.Errorf("error loading schedule load: %w", err)
	}

	var slots []*ScheduleSlot
	for day := 0; day < lookAheadDays; day++ {
		date := from.AddDate(0, 0, day)
		for _, hour := range hoursFor(platform, date) {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
			if candidate.Before(from.Add(minLeadTime)) {
				continue
			}
			slots = append(slots, &ScheduleSlot{
				Platform:    platform,
				At:          candidate,
				Score:       e.ScoreSlot(platform, candidate, contentType),
				Competition: countWithin(scheduled, candidate, slotHalfWidth),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Score > slots[j].Score })
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	return slots, nil
}

// ValidateTime checks that a proposed schedule time is usable. Callers in
// the lifecycle consume this before the draft -> scheduled transition.
func (e *Engine) ValidateTime(at time.Time, now time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("scheduled time is required")
	}
	if !at.After(now) {
		return fmt.Errorf("scheduled time %s is in the past", at.Format(time.RFC3339))
	}
	return nil
}

// DetectConflicts reports over-scheduled days and same-platform posts
// packed closer than one hour within the vendor's scheduled window.
func (e *Engine) DetectConflicts(ctx context.Context, vendorID int64, from, to time.Time) ([]*Conflict, error) {
	posts, err := e.store.ListScheduledByVendorRange(ctx, vendorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error loading scheduled posts: %w", err)
	}

	type dayKey struct {
		platform string
		date     string
	}

	byDay := make(map[dayKey][]*repository.ScheduledPost)
	byPlatform := make(map[string][]*repository.ScheduledPost)
	for _, p := range posts {
		if p.ScheduledAt == nil {
			continue
		}
		k := dayKey{platform: p.Platform, date: p.ScheduledAt.Format(time.DateOnly)}
		byDay[k] = append(byDay[k], p)
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}

	var conflicts []*Conflict

	for k, group := range byDay {
		cap, ok := dailyPostCaps[k.platform]
		if !ok || len(group) <= cap {
			continue
		}
		ids := make([]int64, 0, len(group))
		for _, p := range group {
			ids = append(ids, p.ID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		conflicts = append(conflicts, &Conflict{
			Kind:     ConflictDailyLimitExceeded,
			Platform: k.platform,
			Date:     k.date,
			PostIDs:  ids,
			Message:  fmt.Sprintf("%d posts scheduled on %s for %s (limit %d)", len(group), k.date, k.platform, cap),
		})
	}

	for platformName, group := range byPlatform {
		sort.Slice(group, func(i, j int) bool {
			return group[i].ScheduledAt.Before(*group[j].ScheduledAt)
		})
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			gap := cur.ScheduledAt.Sub(*prev.ScheduledAt)
			if gap < time.Hour {
				conflicts = append(conflicts, &Conflict{
					Kind:     ConflictPostsTooClose,
					Platform: platformName,
					Date:     cur.ScheduledAt.Format(time.DateOnly),
					PostIDs:  []int64{prev.ID, cur.ID},
					At:       *cur.ScheduledAt,
					Message:  fmt.Sprintf("posts %d and %d are %s apart", prev.ID, cur.ID, gap),
				})
			}
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool { return conflicts[i].Date < conflicts[j].Date })
	return conflicts, nil
}

const (
	StrategyOptimal   = "optimal"
	StrategySpread    = "spread"
	StrategyImmediate = "immediate"
)

type BulkItem struct {
	PostID      int64
	Platform    string
	ContentType string
	Timezone    string
}

type BulkAssignment struct {
	PostID      int64
	ScheduledAt time.Time
	Err         error
}

// BulkAssign computes a schedule time per post. Assignments are
// independent: one failing item never aborts the batch.
func (e *Engine) BulkAssign(ctx context.Context, items []*BulkItem, strategy string, from time.Time) []*BulkAssignment {
	assignments := make([]*BulkAssignment, 0, len(items))

	// Slots handed out earlier in the batch count toward availability.
	claimed := make(map[string][]time.Time)

	for i, item := range items {
		a := &BulkAssignment{PostID: item.PostID}

		switch strategy {
		case StrategySpread:
			interval := time.Duration(lookAheadDays) * 24 * time.Hour / time.Duration(len(items))
			a.ScheduledAt = from.Add(time.Duration(i+1) * interval)
		case StrategyImmediate:
			a.ScheduledAt = from.Add(time.Duration(i+1) * 5 * time.Minute)
		case StrategyOptimal, "":
			at, err := e.proposeWithClaims(ctx, item, from, claimed[item.Platform])
			if err != nil {
				a.Err = err
				assignments = append(assignments, a)
				continue
			}
			a.ScheduledAt = at
			claimed[item.Platform] = append(claimed[item.Platform], at)
		default:
			a.Err = fmt.Errorf("unknown strategy %q", strategy)
			assignments = append(assignments, a)
			continue
		}

		if err := e.ValidateTime(a.ScheduledAt, from); err != nil {
			a.Err = err
			a.ScheduledAt = time.Time{}
		}
		assignments = append(assignments, a)
	}

	return assignments
}

func (e *Engine) proposeWithClaims(ctx context.Context, item *BulkItem, from time.Time, claims []time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(item.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localFrom := from.In(loc)

	scheduled, err := e.store.ListScheduledTimes(ctx, item.Platform, localFrom, localFrom.AddDate(0, 0, lookAheadDays))
	if err != nil {
		return time.Time{}, fmt.Errorf("error loading schedule load: %w", err)
	}
	scheduled = append(scheduled, claims...)

	for day := 0; day < lookAheadDays; day++ {
		date := localFrom.AddDate(0, 0, day)
		for _, hour := range hoursFor(item.Platform, date) {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
			if candidate.Before(localFrom.Add(minLeadTime)) {
				continue
			}
			if countWithin(scheduled, candidate, slotHalfWidth) >= slotCapacity {
				continue
			}
			return candidate, nil
		}
	}

	tomorrow := localFrom.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, loc), nil
}

// DailyCap exposes the per-platform scheduling limit.
func DailyCap(platform string) int {
	if cap, ok := dailyPostCaps[platform]; ok {
		return cap
	}
	return 5
}
