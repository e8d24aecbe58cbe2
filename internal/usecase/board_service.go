package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/internal/priority"
	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// BoardItem is one fully annotated row of an agent's board.
type BoardItem struct {
	WorkItemID        int64            `json:"work_item_id"`
	Status            string           `json:"status"`
	StatusLabel       string           `json:"status_label"`
	Bucket            priority.Bucket  `json:"bucket"`
	BucketLabel       string           `json:"bucket_label"`
	Rank              int              `json:"rank"`
	PartnerID         int64            `json:"partner_id"`
	ExternalPartnerID string           `json:"external_partner_id"`
	PartnerName       string           `json:"partner_name"`
	City              string           `json:"city,omitempty"`
	Phone             string           `json:"phone,omitempty"`
	PartnerType       string           `json:"partner_type,omitempty"`
	SegmentTag        string           `json:"segment_tag,omitempty"`
	PriceList         string           `json:"price_list,omitempty"`
	WalletAmount      *decimal.Decimal `json:"wallet_amount,omitempty"`
	PartnerLink       string           `json:"partner_link"`
	LastOrderDate     *time.Time       `json:"last_order_date,omitempty"`
	LastActivityDate  *time.Time       `json:"last_activity_date,omitempty"`
	DaysSinceActivity *int             `json:"days_since_last_activity,omitempty"`
	OrdersThisMonth   int              `json:"orders_this_month"`
	RevenueThisMonth  decimal.Decimal  `json:"revenue_this_month"`
	GMVThisMonth      decimal.Decimal  `json:"gmv_this_month"`
	ActiveDaysMonth   int              `json:"active_days_this_month"`
	LatestFollowUp    *time.Time       `json:"latest_follow_up_date,omitempty"`
	RefreshedAt       *time.Time       `json:"refreshed_at,omitempty"`
}

// BoardFilter narrows the annotated board in memory. Zero value means no
// filtering.
type BoardFilter struct {
	Buckets    []priority.Bucket `json:"buckets,omitempty"`
	SegmentTag string            `json:"segment_tag,omitempty"`
	PartnerID  string            `json:"partner_id,omitempty"` // case-insensitive substring on the external id
}

// BoardService builds an agent's prioritized board and runs the bulk item
// operations over it.
type BoardService struct {
	items           storage.WorkItemRepo
	partnerLinkBase string
}

// NewBoardService creates a BoardService
func NewBoardService(items storage.WorkItemRepo, partnerLinkBase string) *BoardService {
	return &BoardService{
		items:           items,
		partnerLinkBase: strings.TrimRight(partnerLinkBase, "/"),
	}
}

// ListBoard returns the agent's active items annotated with priority signals,
// sorted by urgency and filtered per the request. Priority is recomputed from
// the stored signals on every call so a partner's bucket always reflects the
// data as of today.
func (s *BoardService) ListBoard(ctx context.Context, filter BoardFilter) ([]BoardItem, error) {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	today := utils.Today()
	rows, err := s.items.FetchBoardRows(ctx, identity.AgentID, utils.MonthStart(today))
	if err != nil {
		return nil, err
	}

	items := make([]BoardItem, 0, len(rows))
	for i := range rows {
		items = append(items, s.annotate(rows[i], today))
	}

	sortBoard(items)
	items = applyFilter(items, filter)

	observer.IncBoardListings(identity.AgentID)
	logger.FromContext(ctx).Debug("Board listed",
		zap.String("agent_id", identity.AgentID),
		zap.Int("items", len(items)))
	return items, nil
}

// EnsureItems inserts missing inactive items for the agent's mapped partners.
func (s *BoardService) EnsureItems(ctx context.Context) (int64, error) {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	return s.items.EnsureCurrentItems(ctx, identity.AgentID)
}

// ActivateItems runs the full activation protocol for the agent's mapped partners.
func (s *BoardService) ActivateItems(ctx context.Context) (int64, error) {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	activated, err := s.items.ActivateCurrentItems(ctx, identity.AgentID)
	if err != nil {
		return 0, err
	}
	observer.AddWorkItemsActivated(identity.AgentID, activated)
	return activated, nil
}

// ResetItems returns every active item in the agent's scope to to_call.
func (s *BoardService) ResetItems(ctx context.Context) (int64, error) {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	return s.items.ResetItems(ctx, identity.AgentID)
}

func (s *BoardService) annotate(row storage.BoardRow, today time.Time) BoardItem {
	lastActivity := priority.LastActivityDate(row.LastOrderDate, row.LastActiveMonth)
	days := priority.DaysSince(today, lastActivity)

	orders := 0
	if row.OrdersThisMonth != nil {
		orders = *row.OrdersThisMonth
	}
	bucket, rank := priority.Classify(days, orders)

	revenue := decimal.Zero
	if row.RevenueThisMonth.Valid {
		revenue = row.RevenueThisMonth.Decimal
	}
	gmv := decimal.Zero
	if row.GMVThisMonth.Valid {
		gmv = row.GMVThisMonth.Decimal
	}
	activeDays := 0
	if row.ActiveDaysMonth != nil {
		activeDays = *row.ActiveDaysMonth
	}
	var wallet *decimal.Decimal
	if row.WalletAmount.Valid {
		w := row.WalletAmount.Decimal
		wallet = &w
	}

	return BoardItem{
		WorkItemID:        row.WorkItemID,
		Status:            row.Status,
		StatusLabel:       model.StatusLabels[row.Status],
		Bucket:            bucket,
		BucketLabel:       priority.Labels[bucket],
		Rank:              rank,
		PartnerID:         row.PartnerID,
		ExternalPartnerID: row.ExternalPartnerID,
		PartnerName:       row.PartnerName,
		City:              row.City,
		Phone:             row.Phone,
		PartnerType:       row.PartnerType,
		SegmentTag:        row.SegmentTag,
		PriceList:         row.PriceList,
		WalletAmount:      wallet,
		PartnerLink:       fmt.Sprintf("%s/partner/%s", s.partnerLinkBase, row.ExternalPartnerID),
		LastOrderDate:     row.LastOrderDate,
		LastActivityDate:  lastActivity,
		DaysSinceActivity: days,
		OrdersThisMonth:   orders,
		RevenueThisMonth:  revenue,
		GMVThisMonth:      gmv,
		ActiveDaysMonth:   activeDays,
		LatestFollowUp:    row.LatestFollowUp,
		RefreshedAt:       row.RefreshedAt,
	}
}

// sortBoard orders items by rank, then month-to-date revenue descending, then
// days since last activity descending with unknowns last, then partner name.
func sortBoard(items []BoardItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if cmp := a.RevenueThisMonth.Cmp(b.RevenueThisMonth); cmp != 0 {
			return cmp > 0
		}
		if (a.DaysSinceActivity == nil) != (b.DaysSinceActivity == nil) {
			return a.DaysSinceActivity != nil
		}
		if a.DaysSinceActivity != nil && *a.DaysSinceActivity != *b.DaysSinceActivity {
			return *a.DaysSinceActivity > *b.DaysSinceActivity
		}
		return strings.ToLower(a.PartnerName) < strings.ToLower(b.PartnerName)
	})
}

func applyFilter(items []BoardItem, filter BoardFilter) []BoardItem {
	if len(filter.Buckets) == 0 && filter.SegmentTag == "" && filter.PartnerID == "" {
		return items
	}

	bucketSet := make(map[priority.Bucket]struct{}, len(filter.Buckets))
	for _, b := range filter.Buckets {
		bucketSet[b] = struct{}{}
	}
	needle := strings.ToLower(filter.PartnerID)

	filtered := items[:0]
	for _, item := range items {
		if len(bucketSet) > 0 {
			if _, ok := bucketSet[item.Bucket]; !ok {
				continue
			}
		}
		if filter.SegmentTag != "" && item.SegmentTag != filter.SegmentTag {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.ExternalPartnerID), needle) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}
