package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
)

// AgentService maintains the app user directory backing session identities.
type AgentService struct {
	agents storage.AgentRepo
}

// NewAgentService creates an AgentService
func NewAgentService(agents storage.AgentRepo) *AgentService {
	return &AgentService{agents: agents}
}

// ListFarmers returns the directory of agents that work the board.
func (s *AgentService) ListFarmers(ctx context.Context) ([]model.Agent, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	return s.agents.ListAgentsByRole(ctx, model.AgentRoleCentralFarmer)
}

// EnsureSessionAgent records the session identity in the directory. Called on
// every authenticated request; the upsert keeps name and email current without
// a separate admin flow.
func (s *AgentService) EnsureSessionAgent(ctx context.Context) error {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	agent := model.Agent{
		ID:    identity.AgentID,
		Name:  identity.AgentName,
		Email: identity.AgentEmail,
		Role:  model.AgentRoleCentralFarmer,
	}
	if err := s.agents.UpsertAgent(ctx, agent); err != nil {
		logger.FromContext(ctx).Warn("Failed to record session agent",
			zap.String("agent_id", identity.AgentID),
			zap.Error(err))
		return err
	}
	return nil
}
