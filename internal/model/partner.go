package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Partner segment tags. Empty means unset.
const (
	SegmentPortfolio = "Portfolio"
	SegmentLongtail  = "Longtail"
)

// Partner is an account entity worked by agents. Rows are created and
// updated by the bulk-upload collaborator; the work-item core only reads them.
type Partner struct {
	ID                int64           `json:"-" gorm:"primaryKey;autoIncrement"`
	ExternalPartnerID string          `json:"external_partner_id" gorm:"column:external_partner_id;uniqueIndex" validate:"required"`
	PartnerName       string          `json:"partner_name" gorm:"column:partner_name" validate:"required"`
	City              string          `json:"city,omitempty" gorm:"column:city"`
	Phone             string          `json:"phone,omitempty" gorm:"column:phone"`
	PartnerType       string          `json:"partner_type,omitempty" gorm:"column:partner_type"`
	SegmentTag        string          `json:"segment_tag,omitempty" gorm:"column:segment_tag"`
	PriceList         string          `json:"price_list,omitempty" gorm:"column:price_list"`
	WalletAmount      decimal.Decimal `json:"wallet_amount,omitempty" gorm:"column:wallet_amount;type:numeric"`
	LastOrderDate     *time.Time      `json:"last_order_date,omitempty" gorm:"column:last_order_date;type:date"`
	CreatedAt         time.Time       `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Partner) TableName() string {
	return "partners"
}

// PartnerUpdatableFields returns the columns refreshed on an upsert keyed by
// external_partner_id.
func PartnerUpdatableFields() []string {
	return []string{
		"partner_name", "city", "phone", "partner_type",
		"segment_tag", "price_list", "wallet_amount", "updated_at",
	}
}

// AgentPartnerMapping assigns a partner to an agent. Read-only input to the
// core; it defines the scope of an agent's board.
type AgentPartnerMapping struct {
	ID        int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	PartnerID int64     `json:"partner_id" gorm:"column:partner_id;index;uniqueIndex:uniq_partner_agent" validate:"required"`
	AgentID   string    `json:"agent_id" gorm:"column:agent_id;index;uniqueIndex:uniq_partner_agent" validate:"required"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (AgentPartnerMapping) TableName() string {
	return "partner_agent_map"
}

// MonthlyMetric is the per-partner, per-calendar-month aggregate uploaded by
// the ingestion collaborator. MonthDate is always the first day of the month.
type MonthlyMetric struct {
	ID           int64           `json:"-" gorm:"primaryKey;autoIncrement"`
	PartnerID    int64           `json:"partner_id" gorm:"column:partner_id;index;uniqueIndex:uniq_partner_month" validate:"required"`
	MonthDate    time.Time       `json:"month_date" gorm:"column:month_date;type:date;uniqueIndex:uniq_partner_month" validate:"required"`
	Orders       int             `json:"orders" gorm:"column:orders" validate:"gte=0"`
	GMV          decimal.Decimal `json:"gmv" gorm:"column:gmv;type:numeric"`
	NetRevenue   decimal.Decimal `json:"net_revenue" gorm:"column:net_revenue;type:numeric"`
	RevPerGMV    decimal.Decimal `json:"rev_per_gmv" gorm:"column:rev_per_gmv;type:numeric"`
	ChannelShare decimal.Decimal `json:"channel_share" gorm:"column:channel_share;type:numeric"`
	ActiveDays   int             `json:"active_days" gorm:"column:active_days"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (MonthlyMetric) TableName() string {
	return "partner_monthly_metrics"
}

// MetricUpdatableFields returns the columns refreshed on an upsert keyed by
// (partner_id, month_date).
func MetricUpdatableFields() []string {
	return []string{
		"orders", "gmv", "net_revenue", "rev_per_gmv",
		"channel_share", "active_days", "updated_at",
	}
}
