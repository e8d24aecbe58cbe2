package model

import (
	"time"

	"gorm.io/datatypes"
)

// Call outcomes captured by the feedback gate.
const (
	OutcomeConnected   = "Connected"
	OutcomeSwitchedOff = "Switched OFF"
	OutcomeRNR         = "RNR"
)

// Call sentiments captured by the feedback gate.
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// Feedback is the mandatory payload gating a transition commit. FollowUpDate
// is required only when the target status is follow_up.
type Feedback struct {
	CallOutcome    string     `json:"call_outcome" validate:"required,oneof=Connected 'Switched OFF' RNR"`
	Sentiment      string     `json:"sentiment" validate:"required,oneof=Positive Neutral Negative"`
	PrimaryConcern string     `json:"primary_concern" validate:"required"`
	NextAction     string     `json:"next_action" validate:"required"`
	FollowUpDate   *time.Time `json:"follow_up_date,omitempty"`
}

// ActivityLogEntry is the immutable audit record appended on every committed
// status transition. Rows are never updated or deleted.
type ActivityLogEntry struct {
	ID             int64          `json:"-" gorm:"primaryKey;autoIncrement"`
	WorkItemID     int64          `json:"work_item_id" gorm:"column:work_item_id;index" validate:"required"`
	PartnerID      int64          `json:"partner_id" gorm:"column:partner_id;index" validate:"required"`
	AgentID        string         `json:"agent_id" gorm:"column:agent_id;index" validate:"required"`
	Status         string         `json:"status" gorm:"column:status" validate:"required"`
	CallOutcome    string         `json:"call_outcome" gorm:"column:call_outcome" validate:"required"`
	Sentiment      string         `json:"sentiment" gorm:"column:sentiment" validate:"required"`
	PrimaryConcern string         `json:"primary_concern" gorm:"column:primary_concern" validate:"required"`
	NextAction     string         `json:"next_action" gorm:"column:next_action" validate:"required"`
	FollowUpDate   *time.Time     `json:"follow_up_date,omitempty" gorm:"column:follow_up_date;type:date"`
	Details        datatypes.JSON `json:"details,omitempty" gorm:"type:jsonb;column:details"`
	CreatedAt      time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (ActivityLogEntry) TableName() string {
	return "activity_log"
}
