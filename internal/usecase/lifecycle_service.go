package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	"github.com/udayshankar95/central-farming-tool/internal/validator"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// TransitionProposal is the first phase of a status change: it names the move
// and tells the client what the feedback form must collect before commit. A
// proposal with Noop set means the item already holds the requested status and
// there is nothing to commit.
type TransitionProposal struct {
	WorkItemID      int64    `json:"work_item_id"`
	CurrentStatus   string   `json:"current_status"`
	NewStatus       string   `json:"new_status"`
	Noop            bool     `json:"noop"`
	NewStatusLabel  string   `json:"new_status_label,omitempty"`
	RequiresDate    bool     `json:"requires_follow_up_date"`
	DefaultOutcome  string   `json:"default_outcome,omitempty"`
	OutcomeOptions  []string `json:"outcome_options,omitempty"`
	SentimentValues []string `json:"sentiment_options,omitempty"`
}

// TransitionRequest is the second phase: the proposed move plus the completed
// feedback payload.
type TransitionRequest struct {
	WorkItemID int64          `json:"work_item_id" validate:"required"`
	NewStatus  string         `json:"new_status" validate:"required"`
	Feedback   model.Feedback `json:"feedback"`
}

// TransitionResult reports a committed transition. SurveyURL is a prompt for
// the agent, not a dependency of the commit.
type TransitionResult struct {
	WorkItemID int64  `json:"work_item_id"`
	NewStatus  string `json:"new_status"`
	SurveyURL  string `json:"survey_url,omitempty"`
}

// LifecycleService drives the two-phase propose/commit protocol for work item
// status changes.
type LifecycleService struct {
	items     storage.WorkItemRepo
	activity  storage.ActivityLogRepo
	surveyURL string
}

// NewLifecycleService creates a LifecycleService
func NewLifecycleService(items storage.WorkItemRepo, activity storage.ActivityLogRepo, surveyURL string) *LifecycleService {
	return &LifecycleService{items: items, activity: activity, surveyURL: surveyURL}
}

// ProposeTransition validates the move and describes the feedback the commit
// will demand. Nothing is persisted; any status may move to any other. A move
// onto the item's current status is a noop, so no feedback is collected and no
// activity entry ever gets written for it.
func (s *LifecycleService) ProposeTransition(ctx context.Context, itemID int64, newStatus string) (*TransitionProposal, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if !model.IsValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrBadRequest, newStatus)
	}

	item, err := s.items.FindWorkItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, fmt.Errorf("%w: work item %d is no longer active", apperrors.ErrNotFound, itemID)
	}

	if newStatus == item.Status {
		return &TransitionProposal{
			WorkItemID:    item.ID,
			CurrentStatus: item.Status,
			NewStatus:     newStatus,
			Noop:          true,
		}, nil
	}

	proposal := &TransitionProposal{
		WorkItemID:      item.ID,
		CurrentStatus:   item.Status,
		NewStatus:       newStatus,
		NewStatusLabel:  model.StatusLabels[newStatus],
		RequiresDate:    newStatus == model.StatusFollowUp,
		OutcomeOptions:  []string{model.OutcomeConnected, model.OutcomeSwitchedOff, model.OutcomeRNR},
		SentimentValues: []string{model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative},
	}
	if model.IsRNRStatus(newStatus) {
		proposal.DefaultOutcome = model.OutcomeRNR
	}
	return proposal, nil
}

// CommitTransition applies a proposed move after the feedback gate passes. The
// status update and its activity log entry land in one transaction; a vanished
// item surfaces as not-found so the client can refresh its board.
func (s *LifecycleService) CommitTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	identity, err := session.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	log := logger.FromContext(ctx)

	if !model.IsValidStatus(req.NewStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrBadRequest, req.NewStatus)
	}

	feedback, err := s.gateFeedback(req.NewStatus, req.Feedback)
	if err != nil {
		observer.IncTransitionsRejected(identity.AgentID)
		log.Warn("Transition rejected by feedback gate",
			zap.Int64("work_item_id", req.WorkItemID),
			zap.String("new_status", req.NewStatus),
			zap.Error(err))
		return nil, err
	}

	entry := model.ActivityLogEntry{
		AgentID:        identity.AgentID,
		CallOutcome:    feedback.CallOutcome,
		Sentiment:      feedback.Sentiment,
		PrimaryConcern: feedback.PrimaryConcern,
		NextAction:     feedback.NextAction,
		FollowUpDate:   feedback.FollowUpDate,
		Details: datatypes.JSON(utils.MustMarshalJSON(map[string]interface{}{
			"agent_name":  identity.AgentName,
			"agent_email": identity.AgentEmail,
		})),
	}

	if err := s.items.CommitTransition(ctx, req.WorkItemID, req.NewStatus, entry); err != nil {
		return nil, err
	}

	observer.IncTransitionsCommitted(identity.AgentID, req.NewStatus)
	return &TransitionResult{
		WorkItemID: req.WorkItemID,
		NewStatus:  req.NewStatus,
		SurveyURL:  s.surveyURL,
	}, nil
}

// ItemHistory returns the call log recorded against a work item's partner, so
// an agent sees attempts from earlier activation rounds too. Newest first.
func (s *LifecycleService) ItemHistory(ctx context.Context, itemID int64) ([]model.ActivityLogEntry, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	item, err := s.items.FindWorkItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.activity.FindActivityByPartnerID(ctx, item.PartnerID)
}

// gateFeedback enforces the mandatory feedback contract: a valid outcome and
// sentiment, non-empty concern and next action, and a follow-up date exactly
// when the move lands on follow_up. RNR moves default the outcome to RNR when
// the agent leaves it blank.
func (s *LifecycleService) gateFeedback(newStatus string, fb model.Feedback) (model.Feedback, error) {
	if fb.CallOutcome == "" && model.IsRNRStatus(newStatus) {
		fb.CallOutcome = model.OutcomeRNR
	}

	fb.PrimaryConcern = strings.TrimSpace(fb.PrimaryConcern)
	fb.NextAction = strings.TrimSpace(fb.NextAction)

	if err := validator.Validate(fb); err != nil {
		return fb, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	if newStatus == model.StatusFollowUp {
		if fb.FollowUpDate == nil {
			return fb, fmt.Errorf("%w: follow_up_date is required when moving to follow_up", apperrors.ErrValidation)
		}
	} else {
		// A date supplied for a non-follow_up move would pollute the latest
		// follow-up annotation on the board.
		fb.FollowUpDate = nil
	}

	return fb, nil
}
