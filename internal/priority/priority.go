// Package priority derives the urgency bucket and rank for a partner from its
// recency and volume signals. Classification is a pure function of the
// signals; nothing here is persisted, so a partner may re-enter a
// higher-urgency bucket on a later read.
package priority

import (
	"time"

	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// Bucket is the urgency category assigned to a partner.
type Bucket string

const (
	BucketEmergingPowerUser Bucket = "emerging_power_user"
	BucketAR40              Bucket = "ar40"
	BucketAR28              Bucket = "ar28"
	BucketAR14              Bucket = "ar14"
	BucketAR7               Bucket = "ar7"
	BucketRegularActivation Bucket = "regular_activation"
)

// Ranks per bucket. Lower rank sorts first (more urgent).
const (
	RankAR40              = 10
	RankAR28              = 20
	RankAR14              = 30
	RankAR7               = 40
	RankEmergingPowerUser = 50
	RankRegularActivation = 60
)

// Buckets lists all buckets in display order.
var Buckets = []Bucket{
	BucketAR40,
	BucketAR28,
	BucketAR14,
	BucketAR7,
	BucketEmergingPowerUser,
	BucketRegularActivation,
}

// Labels maps bucket keys to display labels.
var Labels = map[Bucket]string{
	BucketAR40:              "AR40 - No order since 40+ days",
	BucketAR28:              "AR28 - No order since 28+ days (excluding AR40)",
	BucketAR14:              "AR14 - No order since 14+ days (excluding AR40/AR28)",
	BucketAR7:               "AR7 - No order since 7+ days (excluding AR40/AR28/AR14)",
	BucketEmergingPowerUser: "Emerging Power User - 2 orders in last 8 days (proxy)",
	BucketRegularActivation: "Regular Activation",
}

// IsValid reports whether b is a known bucket key.
func IsValid(b Bucket) bool {
	_, ok := Labels[b]
	return ok
}

// Classify maps a partner's recency/volume signals to an urgency bucket and
// rank. daysSinceLastActivity is nil when the partner has no activity on
// record. Rules are mutually exclusive and evaluated top to bottom; the
// emerging-power-user proxy wins over the recency ladder only inside the
// 8-day window.
func Classify(daysSinceLastActivity *int, ordersThisMonth int) (Bucket, int) {
	if daysSinceLastActivity != nil {
		days := *daysSinceLastActivity
		switch {
		case days <= 8 && ordersThisMonth >= 2:
			return BucketEmergingPowerUser, RankEmergingPowerUser
		case days >= 40:
			return BucketAR40, RankAR40
		case days >= 28:
			return BucketAR28, RankAR28
		case days >= 14:
			return BucketAR14, RankAR14
		case days >= 7:
			return BucketAR7, RankAR7
		}
	}
	return BucketRegularActivation, RankRegularActivation
}

// LastActivityDate derives a partner's last activity date: the last known
// order date if present, else the final day of the most recent metrics month
// with orders > 0, else nil.
func LastActivityDate(lastOrderDate, lastActiveMonth *time.Time) *time.Time {
	if lastOrderDate != nil {
		d := lastOrderDate.UTC()
		return &d
	}
	if lastActiveMonth != nil {
		d := utils.MonthEnd(*lastActiveMonth)
		return &d
	}
	return nil
}

// DaysSince converts a last activity date to a whole day count relative to
// today. Returns nil for a nil date.
func DaysSince(today time.Time, lastActivity *time.Time) *int {
	if lastActivity == nil {
		return nil
	}
	days := utils.DaysBetween(*lastActivity, today)
	return &days
}
