package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

const insertMissingItemsSQL = `
INSERT INTO work_items (partner_id, status, is_active, created_at, updated_at)
SELECT pam.partner_id, ?, FALSE, ?, ?
FROM partner_agent_map pam
WHERE pam.agent_id = ?
  AND NOT EXISTS (
    SELECT 1 FROM work_items wi WHERE wi.partner_id = pam.partner_id
  )`

const deactivateItemsSQL = `
UPDATE work_items SET is_active = FALSE, updated_at = ?
WHERE is_active
  AND partner_id IN (SELECT partner_id FROM partner_agent_map WHERE agent_id = ?)`

const activateLatestItemsSQL = `
UPDATE work_items SET is_active = TRUE, updated_at = ?
WHERE id IN (
  SELECT MAX(wi.id)
  FROM work_items wi
  JOIN partner_agent_map pam ON pam.partner_id = wi.partner_id
  WHERE pam.agent_id = ?
  GROUP BY wi.partner_id
)`

const resetItemsSQL = `
UPDATE work_items SET status = ?, refreshed_at = ?, updated_at = ?
WHERE is_active
  AND partner_id IN (SELECT partner_id FROM partner_agent_map WHERE agent_id = ?)`

const boardRowsSQL = `
SELECT
  wi.id AS work_item_id,
  wi.status,
  wi.refreshed_at,
  p.id AS partner_id,
  p.external_partner_id,
  p.partner_name,
  p.city,
  p.phone,
  p.partner_type,
  p.segment_tag,
  p.price_list,
  p.wallet_amount,
  p.last_order_date,
  m0.orders AS orders_this_month,
  m0.net_revenue AS revenue_this_month,
  m0.gmv AS gmv_this_month,
  m0.active_days AS active_days_this_month,
  la.last_active_month,
  fu.latest_follow_up_date
FROM work_items wi
JOIN partners p ON p.id = wi.partner_id
JOIN partner_agent_map pam ON pam.partner_id = p.id AND pam.agent_id = ?
LEFT JOIN partner_monthly_metrics m0 ON m0.partner_id = p.id AND m0.month_date = ?
LEFT JOIN (
  SELECT partner_id, MAX(month_date) AS last_active_month
  FROM partner_monthly_metrics
  WHERE orders > 0
  GROUP BY partner_id
) la ON la.partner_id = p.id
LEFT JOIN (
  SELECT work_item_id, MAX(follow_up_date) AS latest_follow_up_date
  FROM activity_log
  WHERE follow_up_date IS NOT NULL
  GROUP BY work_item_id
) fu ON fu.work_item_id = wi.id
WHERE wi.is_active`

// EnsureCurrentItems inserts an inactive to_call item for every partner mapped
// to the agent that has no work item at all. Idempotent: reruns insert nothing.
func (r *PostgresRepo) EnsureCurrentItems(ctx context.Context, agentID string) (int64, error) {
	now := utils.Now()

	startTime := now
	result := r.db.WithContext(ctx).Exec(insertMissingItemsSQL, model.StatusToCall, now, now, agentID)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("ensure", "work_item", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to ensure current work items", zap.String("agent_id", agentID), zap.Error(err))
		return 0, err
	}

	if result.RowsAffected > 0 {
		logger.FromContext(ctx).Info("Inserted missing work items",
			zap.String("agent_id", agentID),
			zap.Int64("inserted", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// ActivateCurrentItems runs the activation protocol for the agent's mapped
// partners in one transaction: insert missing inactive items, deactivate every
// active item, then activate the latest item per partner. The ordering matters:
// the partial unique index on (partner_id) WHERE is_active would reject an
// activation that precedes the deactivation.
func (r *PostgresRepo) ActivateCurrentItems(ctx context.Context, agentID string) (int64, error) {
	now := utils.Now()
	var activated int64

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		if err := tx.Exec(insertMissingItemsSQL, model.StatusToCall, now, now, agentID).Error; err != nil {
			txErr = checkConstraintViolation(err)
			return txErr
		}

		if err := tx.Exec(deactivateItemsSQL, now, agentID).Error; err != nil {
			txErr = checkConstraintViolation(err)
			return txErr
		}

		result := tx.Exec(activateLatestItemsSQL, now, agentID)
		if result.Error != nil {
			txErr = checkConstraintViolation(result.Error)
			return txErr
		}
		activated = result.RowsAffected

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = checkConstraintViolation(commitErr)
			return txErr
		}
		return nil
	}

	startTime := now
	err := operation()
	observer.ObserveDbOperationDuration("activate", "work_item", time.Since(startTime), err)

	if err != nil {
		// A unique violation here means the deactivate step did not precede the
		// activate step, which is an ordering bug, not user error.
		if apperrors.IsDuplicateError(err) {
			err = apperrors.NewFatal(err, "activation protocol violated the single-active-item invariant")
		}
		logger.FromContext(ctx).Error("Failed to activate current work items", zap.String("agent_id", agentID), zap.Error(err))
		return 0, err
	}

	logger.FromContext(ctx).Info("Activated current work items",
		zap.String("agent_id", agentID),
		zap.Int64("activated", activated))
	return activated, nil
}

// ResetItems moves every active item in the agent's scope back to to_call and
// stamps refreshed_at. Call history is untouched.
func (r *PostgresRepo) ResetItems(ctx context.Context, agentID string) (int64, error) {
	now := utils.Now()

	startTime := now
	result := r.db.WithContext(ctx).Exec(resetItemsSQL, model.StatusToCall, now, now, agentID)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("reset", "work_item", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to reset work items", zap.String("agent_id", agentID), zap.Error(err))
		return 0, err
	}

	logger.FromContext(ctx).Info("Reset work items to to_call",
		zap.String("agent_id", agentID),
		zap.Int64("reset", result.RowsAffected))
	return result.RowsAffected, nil
}

// FindWorkItemByID finds a work item by primary key
func (r *PostgresRepo) FindWorkItemByID(ctx context.Context, id int64) (*model.WorkItem, error) {
	var item model.WorkItem

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&item)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("find", "work_item", time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find work item", zap.Int64("work_item_id", id), zap.Error(err))
		return nil, err
	}

	return &item, nil
}

// CommitTransition applies a status change and appends its activity log entry
// in one transaction. The target row is locked first; a vanished or inactive
// item surfaces as ErrNotFound so the caller can tell the agent to refresh.
func (r *PostgresRepo) CommitTransition(ctx context.Context, itemID int64, newStatus string, entry model.ActivityLogEntry) error {
	now := utils.Now()

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var item model.WorkItem
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active", itemID).
			First(&item)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: active work item %d not found", apperrors.ErrNotFound, itemID)
				return txErr
			}
			txErr = fmt.Errorf("%w: failed to lock work item row: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		updateResult := tx.Model(&item).Updates(map[string]interface{}{
			"status":     newStatus,
			"updated_at": now,
		})
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}

		entry.WorkItemID = item.ID
		entry.PartnerID = item.PartnerID
		entry.Status = newStatus
		entry.CreatedAt = now
		if createErr := tx.Create(&entry).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = checkConstraintViolation(commitErr)
			return txErr
		}
		return nil
	}

	startTime := now
	err := operation()
	observer.ObserveDbOperationDuration("transition", "work_item", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to commit work item transition",
			zap.Int64("work_item_id", itemID),
			zap.String("new_status", newStatus),
			zap.Error(err))
		return err
	}

	logger.FromContext(ctx).Info("Committed work item transition",
		zap.Int64("work_item_id", itemID),
		zap.String("new_status", newStatus),
		zap.String("agent_id", entry.AgentID))
	return nil
}

// FetchBoardRows returns the raw board read model for the agent's active
// items: partner attributes, the month-to-date metric row keyed by monthStart,
// the latest metrics month with orders, and the latest logged follow-up date.
func (r *PostgresRepo) FetchBoardRows(ctx context.Context, agentID string, monthStart time.Time) ([]BoardRow, error) {
	var rows []BoardRow

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Raw(boardRowsSQL, agentID, monthStart).Scan(&rows)
	err := result.Error
	if err != nil {
		err = fmt.Errorf("%w: board query failed: %w", apperrors.ErrDatabase, err)
	}
	observer.ObserveDbOperationDuration("board", "work_item", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to fetch board rows", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	return rows, nil
}
