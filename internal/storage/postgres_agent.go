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

// UpsertAgent inserts or refreshes an app user row keyed by id.
func (r *PostgresRepo) UpsertAgent(ctx context.Context, agent model.Agent) error {
	agent.UpdatedAt = utils.Now()

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "role", "updated_at"}),
	}).Create(&agent)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("upsert", "agent", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to upsert agent", zap.String("agent_id", agent.ID), zap.Error(err))
		return err
	}

	return nil
}

// FindAgentByID finds an app user by id
func (r *PostgresRepo) FindAgentByID(ctx context.Context, id string) (*model.Agent, error) {
	var agent model.Agent

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&agent)
	err := checkConstraintViolation(result.Error)
	observer.ObserveDbOperationDuration("find", "agent", time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find agent", zap.String("agent_id", id), zap.Error(err))
		return nil, err
	}

	return &agent, nil
}

// ListAgentsByRole returns all app users holding the given role, ordered by name.
func (r *PostgresRepo) ListAgentsByRole(ctx context.Context, role string) ([]model.Agent, error) {
	var agents []model.Agent

	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("name ASC").
		Find(&agents)
	err := result.Error
	if err != nil {
		err = fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, err)
	}
	observer.ObserveDbOperationDuration("list_by_role", "agent", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to list agents by role", zap.String("role", role), zap.Error(err))
		return nil, err
	}

	return agents, nil
}
