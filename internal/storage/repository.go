package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/udayshankar95/central-farming-tool/internal/model"
)

// BoardRow is the raw per-partner read model behind an agent's board. It
// carries the signals needed to derive priority in the service layer; nothing
// here is classified or sorted yet.
type BoardRow struct {
	WorkItemID        int64               `gorm:"column:work_item_id"`
	Status            string              `gorm:"column:status"`
	RefreshedAt       *time.Time          `gorm:"column:refreshed_at"`
	PartnerID         int64               `gorm:"column:partner_id"`
	ExternalPartnerID string              `gorm:"column:external_partner_id"`
	PartnerName       string              `gorm:"column:partner_name"`
	City              string              `gorm:"column:city"`
	Phone             string              `gorm:"column:phone"`
	PartnerType       string              `gorm:"column:partner_type"`
	SegmentTag        string              `gorm:"column:segment_tag"`
	PriceList         string              `gorm:"column:price_list"`
	WalletAmount      decimal.NullDecimal `gorm:"column:wallet_amount"`
	LastOrderDate     *time.Time          `gorm:"column:last_order_date"`
	OrdersThisMonth   *int                `gorm:"column:orders_this_month"`
	RevenueThisMonth  decimal.NullDecimal `gorm:"column:revenue_this_month"`
	GMVThisMonth      decimal.NullDecimal `gorm:"column:gmv_this_month"`
	ActiveDaysMonth   *int                `gorm:"column:active_days_this_month"`
	LastActiveMonth   *time.Time          `gorm:"column:last_active_month"`
	LatestFollowUp    *time.Time          `gorm:"column:latest_follow_up_date"`
}

// MonthlyTotal is one month of portfolio-level aggregates for an agent's
// mapped partners.
type MonthlyTotal struct {
	MonthDate      time.Time           `gorm:"column:month_date" json:"month_date"`
	Orders         int                 `gorm:"column:orders" json:"orders"`
	GMV            decimal.NullDecimal `gorm:"column:gmv" json:"gmv"`
	NetRevenue     decimal.NullDecimal `gorm:"column:net_revenue" json:"net_revenue"`
	ActivePartners int                 `gorm:"column:active_partners" json:"active_partners"`
}

// WorkItemRepo defines work item storage operations
type WorkItemRepo interface {
	EnsureCurrentItems(ctx context.Context, agentID string) (int64, error)
	ActivateCurrentItems(ctx context.Context, agentID string) (int64, error)
	ResetItems(ctx context.Context, agentID string) (int64, error)
	FindWorkItemByID(ctx context.Context, id int64) (*model.WorkItem, error)
	CommitTransition(ctx context.Context, itemID int64, newStatus string, entry model.ActivityLogEntry) error
	FetchBoardRows(ctx context.Context, agentID string, monthStart time.Time) ([]BoardRow, error)
	Close(ctx context.Context) error
}

// PartnerRepo defines partner and mapping storage operations
type PartnerRepo interface {
	BulkUpsertPartners(ctx context.Context, partners []model.Partner) error
	FindPartnerByExternalID(ctx context.Context, externalID string) (*model.Partner, error)
	FindPartnerIDsByExternalIDs(ctx context.Context, externalIDs []string) (map[string]int64, error)
	MapPartnersToAgent(ctx context.Context, partnerIDs []int64, agentID string) error
	Close(ctx context.Context) error
}

// MetricRepo defines monthly metric storage operations
type MetricRepo interface {
	BulkUpsertMetrics(ctx context.Context, metrics []model.MonthlyMetric) error
	FetchMonthlyTotals(ctx context.Context, agentID string, fromMonth time.Time) ([]MonthlyTotal, error)
	Close(ctx context.Context) error
}

// ActivityLogRepo defines activity log read operations. Log rows are written
// only by CommitTransition, inside the same transaction as the status update.
type ActivityLogRepo interface {
	FindActivityByWorkItemID(ctx context.Context, workItemID int64) ([]model.ActivityLogEntry, error)
	FindActivityByPartnerID(ctx context.Context, partnerID int64) ([]model.ActivityLogEntry, error)
	Close(ctx context.Context) error
}

// AgentRepo defines app user storage operations
type AgentRepo interface {
	UpsertAgent(ctx context.Context, agent model.Agent) error
	FindAgentByID(ctx context.Context, id string) (*model.Agent, error)
	ListAgentsByRole(ctx context.Context, role string) ([]model.Agent, error)
	Close(ctx context.Context) error
}
