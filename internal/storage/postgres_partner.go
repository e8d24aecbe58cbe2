package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

const monthlyTotalsSQL = `
SELECT
  m.month_date,
  COALESCE(SUM(m.orders), 0) AS orders,
  COALESCE(SUM(m.gmv), 0) AS gmv,
  COALESCE(SUM(m.net_revenue), 0) AS net_revenue,
  COUNT(*) FILTER (WHERE m.orders > 0) AS active_partners
FROM partner_monthly_metrics m
JOIN partner_agent_map pam ON pam.partner_id = m.partner_id
WHERE pam.agent_id = ? AND m.month_date >= ?
GROUP BY m.month_date
ORDER BY m.month_date`

// BulkUpsertPartners inserts or refreshes partner rows keyed by
// external_partner_id. last_order_date only moves forward.
func (r *PostgresRepo) BulkUpsertPartners(ctx context.Context, partners []model.Partner) error {
	if len(partners) == 0 {
		return nil
	}
	for i := range partners {
		partners[i].UpdatedAt = utils.Now()
	}

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

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_partner_id"}},
			DoUpdates: clause.AssignmentColumns(model.PartnerUpdatableFields()),
		}).Create(&partners)
		if result.Error != nil {
			txErr = checkConstraintViolation(result.Error)
			return txErr
		}

		// Advance last_order_date without ever regressing it. The upsert above
		// leaves the column alone so a sparse upload cannot blank it.
		for i := range partners {
			if partners[i].LastOrderDate == nil {
				continue
			}
			updateErr := tx.Model(&model.Partner{}).
				Where("external_partner_id = ? AND (last_order_date IS NULL OR last_order_date < ?)",
					partners[i].ExternalPartnerID, partners[i].LastOrderDate).
				Update("last_order_date", partners[i].LastOrderDate).Error
			if updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = checkConstraintViolation(commitErr)
			return txErr
		}
		return nil
	}

	startTime := utils.Now()
	err := operation()
	observer.ObserveDbOperationDuration("bulk_upsert", "partner", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to bulk upsert partners", zap.Int("count", len(partners)), zap.Error(err))
		return err
	}

	logger.FromContext(ctx).Info("Bulk upsert partners successful", zap.Int("partners_processed", len(partners)))
	return nil
}

// FindPartnerByExternalID finds a partner by its external identifier
func (r *PostgresRepo) FindPartnerByExternalID(ctx context.Context, externalID string) (*model.Partner, error) {
	var partner model.Partner

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Where("external_partner_id = ?", externalID).First(&partner)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("find", "partner", time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find partner by external id", zap.String("external_partner_id", externalID), zap.Error(err))
		return nil, err
	}

	return &partner, nil
}

// FindPartnerIDsByExternalIDs resolves external identifiers to internal row
// ids. Unknown identifiers are simply absent from the result map.
func (r *PostgresRepo) FindPartnerIDsByExternalIDs(ctx context.Context, externalIDs []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(externalIDs))
	if len(externalIDs) == 0 {
		return ids, nil
	}

	var rows []model.Partner
	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Select("id", "external_partner_id").
		Where("external_partner_id IN ?", externalIDs).
		Find(&rows)
	err := result.Error
	if err != nil {
		err = fmt.Errorf("%w: partner id lookup failed: %w", apperrors.ErrDatabase, err)
	}
	observer.ObserveDbOperationDuration("resolve_ids", "partner", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to resolve partner ids", zap.Int("count", len(externalIDs)), zap.Error(err))
		return nil, err
	}

	for i := range rows {
		ids[rows[i].ExternalPartnerID] = rows[i].ID
	}
	return ids, nil
}

// MapPartnersToAgent assigns partners to an agent. Existing assignments are
// left untouched.
func (r *PostgresRepo) MapPartnersToAgent(ctx context.Context, partnerIDs []int64, agentID string) error {
	if len(partnerIDs) == 0 {
		return nil
	}

	mappings := make([]model.AgentPartnerMapping, 0, len(partnerIDs))
	for _, pid := range partnerIDs {
		mappings = append(mappings, model.AgentPartnerMapping{PartnerID: pid, AgentID: agentID})
	}

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partner_id"}, {Name: "agent_id"}},
		DoNothing: true,
	}).Create(&mappings)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("map", "partner", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to map partners to agent", zap.String("agent_id", agentID), zap.Error(err))
		return err
	}

	return nil
}

// BulkUpsertMetrics inserts or refreshes monthly metric rows keyed by
// (partner_id, month_date).
func (r *PostgresRepo) BulkUpsertMetrics(ctx context.Context, metrics []model.MonthlyMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	for i := range metrics {
		metrics[i].UpdatedAt = utils.Now()
	}

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partner_id"}, {Name: "month_date"}},
		DoUpdates: clause.AssignmentColumns(model.MetricUpdatableFields()),
	}).Create(&metrics)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("bulk_upsert", "metric", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to bulk upsert monthly metrics", zap.Int("count", len(metrics)), zap.Error(err))
		return err
	}

	logger.FromContext(ctx).Info("Bulk upsert monthly metrics successful", zap.Int("metrics_processed", len(metrics)))
	return nil
}

// FetchMonthlyTotals aggregates the agent's mapped partners per metrics month,
// starting at fromMonth.
func (r *PostgresRepo) FetchMonthlyTotals(ctx context.Context, agentID string, fromMonth time.Time) ([]MonthlyTotal, error) {
	var totals []MonthlyTotal

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Raw(monthlyTotalsSQL, agentID, fromMonth).Scan(&totals)
	err := result.Error
	if err != nil {
		err = fmt.Errorf("%w: monthly totals query failed: %w", apperrors.ErrDatabase, err)
	}
	observer.ObserveDbOperationDuration("monthly_totals", "metric", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to fetch monthly totals", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	return totals, nil
}
