package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
)

// --- WorkItemRepo Mock ---

// WorkItemRepoMock mocks the WorkItemRepo interface
type WorkItemRepoMock struct {
	mock.Mock
}

// EnsureCurrentItems mocks the EnsureCurrentItems method
func (m *WorkItemRepoMock) EnsureCurrentItems(ctx context.Context, agentID string) (int64, error) {
	args := m.Called(ctx, agentID)
	return args.Get(0).(int64), args.Error(1)
}

// ActivateCurrentItems mocks the ActivateCurrentItems method
func (m *WorkItemRepoMock) ActivateCurrentItems(ctx context.Context, agentID string) (int64, error) {
	args := m.Called(ctx, agentID)
	return args.Get(0).(int64), args.Error(1)
}

// ResetItems mocks the ResetItems method
func (m *WorkItemRepoMock) ResetItems(ctx context.Context, agentID string) (int64, error) {
	args := m.Called(ctx, agentID)
	return args.Get(0).(int64), args.Error(1)
}

// FindWorkItemByID mocks the FindWorkItemByID method
func (m *WorkItemRepoMock) FindWorkItemByID(ctx context.Context, id int64) (*model.WorkItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkItem), args.Error(1)
}

// CommitTransition mocks the CommitTransition method
func (m *WorkItemRepoMock) CommitTransition(ctx context.Context, itemID int64, newStatus string, entry model.ActivityLogEntry) error {
	args := m.Called(ctx, itemID, newStatus, entry)
	return args.Error(0)
}

// FetchBoardRows mocks the FetchBoardRows method
func (m *WorkItemRepoMock) FetchBoardRows(ctx context.Context, agentID string, monthStart time.Time) ([]storage.BoardRow, error) {
	args := m.Called(ctx, agentID, monthStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.BoardRow), args.Error(1)
}

// Close mocks the Close method
func (m *WorkItemRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- PartnerRepo Mock ---

// PartnerRepoMock mocks the PartnerRepo interface
type PartnerRepoMock struct {
	mock.Mock
}

// BulkUpsertPartners mocks the BulkUpsertPartners method
func (m *PartnerRepoMock) BulkUpsertPartners(ctx context.Context, partners []model.Partner) error {
	args := m.Called(ctx, partners)
	return args.Error(0)
}

// FindPartnerByExternalID mocks the FindPartnerByExternalID method
func (m *PartnerRepoMock) FindPartnerByExternalID(ctx context.Context, externalID string) (*model.Partner, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Partner), args.Error(1)
}

// FindPartnerIDsByExternalIDs mocks the FindPartnerIDsByExternalIDs method
func (m *PartnerRepoMock) FindPartnerIDsByExternalIDs(ctx context.Context, externalIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MapPartnersToAgent mocks the MapPartnersToAgent method
func (m *PartnerRepoMock) MapPartnersToAgent(ctx context.Context, partnerIDs []int64, agentID string) error {
	args := m.Called(ctx, partnerIDs, agentID)
	return args.Error(0)
}

// Close mocks the Close method
func (m *PartnerRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MetricRepo Mock ---

// MetricRepoMock mocks the MetricRepo interface
type MetricRepoMock struct {
	mock.Mock
}

// BulkUpsertMetrics mocks the BulkUpsertMetrics method
func (m *MetricRepoMock) BulkUpsertMetrics(ctx context.Context, metrics []model.MonthlyMetric) error {
	args := m.Called(ctx, metrics)
	return args.Error(0)
}

// FetchMonthlyTotals mocks the FetchMonthlyTotals method
func (m *MetricRepoMock) FetchMonthlyTotals(ctx context.Context, agentID string, fromMonth time.Time) ([]storage.MonthlyTotal, error) {
	args := m.Called(ctx, agentID, fromMonth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.MonthlyTotal), args.Error(1)
}

// Close mocks the Close method
func (m *MetricRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ActivityLogRepo Mock ---

// ActivityLogRepoMock mocks the ActivityLogRepo interface
type ActivityLogRepoMock struct {
	mock.Mock
}

// FindActivityByWorkItemID mocks the FindActivityByWorkItemID method
func (m *ActivityLogRepoMock) FindActivityByWorkItemID(ctx context.Context, workItemID int64) ([]model.ActivityLogEntry, error) {
	args := m.Called(ctx, workItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLogEntry), args.Error(1)
}

// FindActivityByPartnerID mocks the FindActivityByPartnerID method
func (m *ActivityLogRepoMock) FindActivityByPartnerID(ctx context.Context, partnerID int64) ([]model.ActivityLogEntry, error) {
	args := m.Called(ctx, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLogEntry), args.Error(1)
}

// Close mocks the Close method
func (m *ActivityLogRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- AgentRepo Mock ---

// AgentRepoMock mocks the AgentRepo interface
type AgentRepoMock struct {
	mock.Mock
}

// UpsertAgent mocks the UpsertAgent method
func (m *AgentRepoMock) UpsertAgent(ctx context.Context, agent model.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

// FindAgentByID mocks the FindAgentByID method
func (m *AgentRepoMock) FindAgentByID(ctx context.Context, id string) (*model.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

// ListAgentsByRole mocks the ListAgentsByRole method
func (m *AgentRepoMock) ListAgentsByRole(ctx context.Context, role string) ([]model.Agent, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Agent), args.Error(1)
}

// Close mocks the Close method
func (m *AgentRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Ensure mocks implement the interfaces
var _ storage.WorkItemRepo = (*WorkItemRepoMock)(nil)
var _ storage.PartnerRepo = (*PartnerRepoMock)(nil)
var _ storage.MetricRepo = (*MetricRepoMock)(nil)
var _ storage.ActivityLogRepo = (*ActivityLogRepoMock)(nil)
var _ storage.AgentRepo = (*AgentRepoMock)(nil)
