package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/priority"
	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

const trendMonths = 6

// BucketCount pairs an urgency bucket with the number of partners in it.
type BucketCount struct {
	Bucket priority.Bucket `json:"bucket"`
	Label  string          `json:"label"`
	Count  int             `json:"count"`
}

// StatusCount pairs a work item status with the number of items holding it.
type StatusCount struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// PortfolioSummary is the agent-level rollup behind the board: bucket and
// status distributions, month-to-date totals, and a recent monthly trend.
type PortfolioSummary struct {
	TotalPartners    int                    `json:"total_partners"`
	Buckets          []BucketCount          `json:"buckets"`
	Statuses         []StatusCount          `json:"statuses"`
	OrdersThisMonth  int                    `json:"orders_this_month"`
	RevenueThisMonth decimal.Decimal        `json:"revenue_this_month"`
	GMVThisMonth     decimal.Decimal        `json:"gmv_this_month"`
	MonthlyTrend     []storage.MonthlyTotal `json:"monthly_trend"`
}

// PortfolioService aggregates board signals into the agent's portfolio view.
type PortfolioService struct {
	board   *BoardService
	metrics storage.MetricRepo
}

// NewPortfolioService creates a PortfolioService
func NewPortfolioService(board *BoardService, metrics storage.MetricRepo) *PortfolioService {
	return &PortfolioService{board: board, metrics: metrics}
}

// Summarize builds the portfolio rollup for the session agent. Bucket counts
// come from the same classification pass the board uses, so the two views can
// never disagree.
func (s *PortfolioService) Summarize(ctx context.Context) (*PortfolioSummary, error) {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	items, err := s.board.ListBoard(ctx, BoardFilter{})
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		TotalPartners:    len(items),
		RevenueThisMonth: decimal.Zero,
		GMVThisMonth:     decimal.Zero,
	}

	bucketCounts := make(map[priority.Bucket]int)
	statusCounts := make(map[string]int)
	for i := range items {
		bucketCounts[items[i].Bucket]++
		statusCounts[items[i].Status]++
		summary.OrdersThisMonth += items[i].OrdersThisMonth
		summary.RevenueThisMonth = summary.RevenueThisMonth.Add(items[i].RevenueThisMonth)
		summary.GMVThisMonth = summary.GMVThisMonth.Add(items[i].GMVThisMonth)
	}

	for _, b := range priority.Buckets {
		summary.Buckets = append(summary.Buckets, BucketCount{
			Bucket: b,
			Label:  priority.Labels[b],
			Count:  bucketCounts[b],
		})
	}
	for _, st := range model.StatusKeys {
		summary.Statuses = append(summary.Statuses, StatusCount{
			Status: st,
			Label:  model.StatusLabels[st],
			Count:  statusCounts[st],
		})
	}

	fromMonth := utils.MonthStart(utils.Today()).AddDate(0, -(trendMonths - 1), 0)
	trend, err := s.metrics.FetchMonthlyTotals(ctx, identity.AgentID, fromMonth)
	if err != nil {
		return nil, err
	}
	summary.MonthlyTrend = trend

	logger.FromContext(ctx).Debug("Portfolio summarized",
		zap.String("agent_id", identity.AgentID),
		zap.Int("partners", summary.TotalPartners))
	return summary, nil
}
