package model

import (
	"strings"
	"time"
)

// Call-disposition statuses for a work item. StatusToCall is the initial
// state; an item may move from any status to any other.
const (
	StatusToCall         = "to_call"
	StatusRNR1           = "rnr_1"
	StatusRNR2           = "rnr_2"
	StatusRNRFinal       = "rnr_final"
	StatusFollowUp       = "follow_up"
	StatusNotInterested  = "not_interested"
	StatusSuccessfulCall = "successful_call"
	StatusEscalated      = "escalated"
)

// StatusKeys lists all work item statuses in board-column order.
var StatusKeys = []string{
	StatusToCall,
	StatusRNR1,
	StatusRNR2,
	StatusRNRFinal,
	StatusFollowUp,
	StatusNotInterested,
	StatusSuccessfulCall,
	StatusEscalated,
}

// StatusLabels maps status keys to display labels.
var StatusLabels = map[string]string{
	StatusToCall:         "To Call",
	StatusRNR1:           "1st Attempt RNR",
	StatusRNR2:           "2nd Attempt RNR",
	StatusRNRFinal:       "Final RNR",
	StatusFollowUp:       "Follow up",
	StatusNotInterested:  "Not Interested",
	StatusSuccessfulCall: "Successful Call",
	StatusEscalated:      "Escalated",
}

// IsValidStatus reports whether s is a known work item status.
func IsValidStatus(s string) bool {
	_, ok := StatusLabels[s]
	return ok
}

// IsRNRStatus reports whether s is one of the ring-no-response statuses.
func IsRNRStatus(s string) bool {
	return strings.HasPrefix(s, "rnr_")
}

// WorkItem is the unit of outbound-call work tracked per partner. At most one
// row per partner is active at any time, enforced by a partial unique index on
// (partner_id) WHERE is_active.
type WorkItem struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	PartnerID   int64      `json:"partner_id" gorm:"column:partner_id;index" validate:"required"`
	Status      string     `json:"status" gorm:"column:status" validate:"required"`
	IsActive    bool       `json:"is_active" gorm:"column:is_active"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty" gorm:"column:refreshed_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (WorkItem) TableName() string {
	return "work_items"
}
