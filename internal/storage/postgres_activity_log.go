package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// FindActivityByWorkItemID returns the call history for one work item, newest first.
func (r *PostgresRepo) FindActivityByWorkItemID(ctx context.Context, workItemID int64) ([]model.ActivityLogEntry, error) {
	var entries []model.ActivityLogEntry

	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Where("work_item_id = ?", workItemID).
		Order("created_at DESC").
		Find(&entries)
	err := result.Error
	if err != nil {
		err = fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	observer.ObserveDbOperationDuration("find_by_work_item", "activity_log", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to find activity log by work item",
			zap.Int64("work_item_id", workItemID),
			zap.Error(err))
		return nil, err
	}

	return entries, nil
}

// FindActivityByPartnerID returns the call history across every work item the
// partner has ever had, newest first.
func (r *PostgresRepo) FindActivityByPartnerID(ctx context.Context, partnerID int64) ([]model.ActivityLogEntry, error) {
	var entries []model.ActivityLogEntry

	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Find(&entries)
	err := result.Error
	if err != nil {
		err = fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	observer.ObserveDbOperationDuration("find_by_partner", "activity_log", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to find activity log by partner",
			zap.Int64("partner_id", partnerID),
			zap.Error(err))
		return nil, err
	}

	return entries, nil
}
