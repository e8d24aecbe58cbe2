package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/priority"
	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	storagemock "github.com/udayshankar95/central-farming-tool/internal/storage/mock"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
)

const testAgentID = "agent-test-123"

func testContext(t *testing.T) context.Context {
	logger.Log = zaptest.NewLogger(t).Named("test")
	return session.WithIdentity(context.Background(), session.Identity{
		AgentID:    testAgentID,
		AgentName:  "Test Agent",
		AgentEmail: "agent@example.com",
	})
}

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func nullDec(s string) decimal.NullDecimal {
	d, _ := decimal.NewFromString(s)
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func boardRow(workItemID, partnerID int64, externalID, name string) storage.BoardRow {
	return storage.BoardRow{
		WorkItemID:        workItemID,
		Status:            model.StatusToCall,
		PartnerID:         partnerID,
		ExternalPartnerID: externalID,
		PartnerName:       name,
	}
}

func TestBoardService_ListBoard_Annotates(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com/")

	today := time.Now().UTC()
	lastOrder := today.AddDate(0, 0, -45)

	row := boardRow(1, 10, "OH-1001", "Sunrise Diagnostics")
	row.LastOrderDate = &lastOrder
	row.OrdersThisMonth = intPtr(3)
	row.RevenueThisMonth = nullDec("1200.50")
	row.SegmentTag = model.SegmentPortfolio

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{row}, nil)

	got, err := svc.ListBoard(ctx, BoardFilter{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, priority.BucketAR40, got[0].Bucket)
	assert.Equal(t, priority.RankAR40, got[0].Rank)
	assert.Equal(t, "https://oms.example.com/partner/OH-1001", got[0].PartnerLink)
	require.NotNil(t, got[0].DaysSinceActivity)
	assert.Equal(t, 45, *got[0].DaysSinceActivity)
	assert.Equal(t, 3, got[0].OrdersThisMonth)
	assert.Equal(t, "1200.5", got[0].RevenueThisMonth.String())
	assert.Equal(t, model.StatusLabels[model.StatusToCall], got[0].StatusLabel)
	items.AssertExpectations(t)
}

func TestBoardService_ListBoard_NoHistoryIsRegularActivation(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	row := boardRow(1, 10, "OH-1001", "Fresh Partner")

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{row}, nil)

	got, err := svc.ListBoard(ctx, BoardFilter{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, priority.BucketRegularActivation, got[0].Bucket)
	assert.Nil(t, got[0].DaysSinceActivity)
	assert.Nil(t, got[0].LastActivityDate)
}

func TestBoardService_ListBoard_FallsBackToMetricsMonth(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	// No order date on record, but a metrics month with orders: the final day
	// of that month stands in as the activity date.
	lastActiveMonth := time.Date(time.Now().UTC().Year()-1, 6, 1, 0, 0, 0, 0, time.UTC)
	row := boardRow(1, 10, "OH-1001", "Dormant Partner")
	row.LastActiveMonth = &lastActiveMonth

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{row}, nil)

	got, err := svc.ListBoard(ctx, BoardFilter{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].LastActivityDate)
	assert.Equal(t, time.Date(lastActiveMonth.Year(), 6, 30, 0, 0, 0, 0, time.UTC), *got[0].LastActivityDate)
	assert.Equal(t, priority.BucketAR40, got[0].Bucket)
}

func TestBoardService_ListBoard_SortOrder(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	today := time.Now().UTC()

	dormant := boardRow(1, 10, "OH-1", "Zeta Labs")
	d45 := today.AddDate(0, 0, -45)
	dormant.LastOrderDate = &d45

	richRecent := boardRow(2, 11, "OH-2", "Beta Labs")
	d15 := today.AddDate(0, 0, -15)
	richRecent.LastOrderDate = &d15
	richRecent.RevenueThisMonth = nullDec("900")

	poorRecent := boardRow(3, 12, "OH-3", "Alpha Labs")
	poorRecent.LastOrderDate = &d15
	poorRecent.RevenueThisMonth = nullDec("100")

	noHistory := boardRow(4, 13, "OH-4", "Gamma Labs")

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{noHistory, poorRecent, richRecent, dormant}, nil)

	got, err := svc.ListBoard(ctx, BoardFilter{})

	require.NoError(t, err)
	require.Len(t, got, 4)
	// AR40 outranks AR14 outranks regular activation; within AR14 higher
	// revenue sorts first.
	assert.Equal(t, int64(1), got[0].WorkItemID)
	assert.Equal(t, int64(2), got[1].WorkItemID)
	assert.Equal(t, int64(3), got[2].WorkItemID)
	assert.Equal(t, int64(4), got[3].WorkItemID)
}

func TestBoardService_ListBoard_TieBreaksOnNameAndNullDays(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	// Both regular activation with equal revenue; the one with a known (recent)
	// activity date sorts before the one with none, names break the final tie.
	recent := boardRow(1, 10, "OH-1", "Zeta Labs")
	d2 := time.Now().UTC().AddDate(0, 0, -2)
	recent.LastOrderDate = &d2

	unknownB := boardRow(2, 11, "OH-2", "Beta Labs")
	unknownA := boardRow(3, 12, "OH-3", "alpha labs")

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{unknownB, unknownA, recent}, nil)

	got, err := svc.ListBoard(ctx, BoardFilter{})

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].WorkItemID)
	assert.Equal(t, "alpha labs", got[1].PartnerName)
	assert.Equal(t, "Beta Labs", got[2].PartnerName)
}

func TestBoardService_ListBoard_Filters(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	today := time.Now().UTC()
	d45 := today.AddDate(0, 0, -45)

	dormant := boardRow(1, 10, "OH-1001", "Zeta Labs")
	dormant.LastOrderDate = &d45
	dormant.SegmentTag = model.SegmentPortfolio

	fresh := boardRow(2, 11, "XY-2002", "Beta Labs")
	fresh.SegmentTag = model.SegmentLongtail

	items.On("FetchBoardRows", ctx, testAgentID, mock.AnythingOfType("time.Time")).
		Return([]storage.BoardRow{dormant, fresh}, nil)

	got, err := svc.ListBoard(ctx, BoardFilter{
		Buckets:    []priority.Bucket{priority.BucketAR40},
		SegmentTag: model.SegmentPortfolio,
		PartnerID:  "oh-10",
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OH-1001", got[0].ExternalPartnerID)
}

func TestBoardService_ListBoard_RequiresIdentity(t *testing.T) {
	logger.Log = zaptest.NewLogger(t).Named("test")
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	_, err := svc.ListBoard(context.Background(), BoardFilter{})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	items.AssertNotCalled(t, "FetchBoardRows")
}

func TestBoardService_ActivateItems(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	items.On("ActivateCurrentItems", ctx, testAgentID).Return(int64(12), nil)

	activated, err := svc.ActivateItems(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(12), activated)
	items.AssertExpectations(t)
}

func TestBoardService_EnsureAndReset(t *testing.T) {
	ctx := testContext(t)
	items := new(storagemock.WorkItemRepoMock)
	svc := NewBoardService(items, "https://oms.example.com")

	items.On("EnsureCurrentItems", ctx, testAgentID).Return(int64(3), nil)
	items.On("ResetItems", ctx, testAgentID).Return(int64(9), nil)

	ensured, err := svc.EnsureItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ensured)

	reset, err := svc.ResetItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), reset)
	items.AssertExpectations(t)
}
