package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/priority"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	storagemock "github.com/udayshankar95/central-farming-tool/internal/storage/mock"
)

func TestPortfolioService_Summarize(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	metrics := new(storagemock.MetricRepoMock)
	board := NewBoardService(items, "https://oms.example.com")
	svc := NewPortfolioService(board, metrics)

	today := time.Now().UTC()
	d45 := today.AddDate(0, 0, -45)

	dormant := boardRow(1, 10, "OH-1", "Zeta Labs")
	dormant.LastOrderDate = &d45
	dormant.OrdersThisMonth = intPtr(0)

	active := boardRow(2, 11, "OH-2", "Beta Labs")
	active.Status = model.StatusFollowUp
	active.OrdersThisMonth = intPtr(5)
	active.RevenueThisMonth = nullDec("1500")
	active.GMVThisMonth = nullDec("6000")

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{dormant, active}, nil)
	metrics.On("FetchMonthlyTotals", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.MonthlyTotal{
			{MonthDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Orders: 12, ActivePartners: 2},
		}, nil)

	summary, err := svc.Summarize(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalPartners)
	assert.Equal(t, 5, summary.OrdersThisMonth)
	assert.Equal(t, "1500", summary.RevenueThisMonth.String())
	assert.Equal(t, "6000", summary.GMVThisMonth.String())
	require.Len(t, summary.Buckets, len(priority.Buckets))
	require.Len(t, summary.Statuses, len(model.StatusKeys))

	counts := make(map[priority.Bucket]int)
	for _, b := range summary.Buckets {
		counts[b.Bucket] = b.Count
	}
	assert.Equal(t, 1, counts[priority.BucketAR40])

	statusCounts := make(map[string]int)
	for _, st := range summary.Statuses {
		statusCounts[st.Status] = st.Count
	}
	assert.Equal(t, 1, statusCounts[model.StatusFollowUp])
	assert.Equal(t, 1, statusCounts[model.StatusToCall])

	require.Len(t, summary.MonthlyTrend, 1)
	assert.Equal(t, 12, summary.MonthlyTrend[0].Orders)
}
