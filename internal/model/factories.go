package model

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewAgent creates a new Agent instance with default fake data.
func NewAgent(overrideDefaults ...*Agent) *Agent {
	base := &Agent{
		ID:        gofakeit.UUID(),
		Name:      gofakeit.Name(),
		Email:     gofakeit.Email(),
		Role:      AgentRoleCentralFarmer,
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Email != "" {
			base.Email = ovr.Email
		}
		if ovr.Role != "" {
			base.Role = ovr.Role
		}
	}
	return base
}

// NewPartner creates a new Partner instance with default fake data.
func NewPartner(overrideDefaults ...*Partner) *Partner {
	lastOrder := utils.Today().AddDate(0, 0, -gofakeit.Number(1, 60))
	base := &Partner{
		ID:                int64(gofakeit.Number(1, 100000)),
		ExternalPartnerID: fmt.Sprintf("OH-%d", gofakeit.Number(1000, 99999)),
		PartnerName:       gofakeit.Company(),
		City:              gofakeit.City(),
		Phone:             gofakeit.Phone(),
		PartnerType:       gofakeit.RandomString([]string{"At-Home", "In Clinic", "eClinic"}),
		SegmentTag:        gofakeit.RandomString([]string{SegmentPortfolio, SegmentLongtail}),
		PriceList:         gofakeit.RandomString([]string{"standard", "premium"}),
		WalletAmount:      decimal.NewFromFloat(gofakeit.Float64Range(0, 5000)).Round(2),
		LastOrderDate:     &lastOrder,
		CreatedAt:         utils.Now().Add(-time.Duration(gofakeit.Number(1, 1000)) * time.Hour),
		UpdatedAt:         utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != 0 {
			base.ID = ovr.ID
		}
		if ovr.ExternalPartnerID != "" {
			base.ExternalPartnerID = ovr.ExternalPartnerID
		}
		if ovr.PartnerName != "" {
			base.PartnerName = ovr.PartnerName
		}
		if ovr.City != "" {
			base.City = ovr.City
		}
		if ovr.PartnerType != "" {
			base.PartnerType = ovr.PartnerType
		}
		if ovr.SegmentTag != "" {
			base.SegmentTag = ovr.SegmentTag
		}
		if ovr.LastOrderDate != nil {
			base.LastOrderDate = ovr.LastOrderDate
		}
	}
	return base
}

// NewMonthlyMetric creates a new MonthlyMetric instance with default fake data
// for the current calendar month.
func NewMonthlyMetric(overrideDefaults ...*MonthlyMetric) *MonthlyMetric {
	gmv := decimal.NewFromFloat(gofakeit.Float64Range(500, 50000)).Round(2)
	base := &MonthlyMetric{
		ID:           int64(gofakeit.Number(1, 100000)),
		PartnerID:    int64(gofakeit.Number(1, 100000)),
		MonthDate:    utils.MonthStart(utils.Today()),
		Orders:       gofakeit.Number(0, 30),
		GMV:          gmv,
		NetRevenue:   gmv.Mul(decimal.NewFromFloat(0.2)).Round(2),
		RevPerGMV:    decimal.NewFromFloat(0.2),
		ChannelShare: decimal.NewFromFloat(gofakeit.Float64Range(0, 1)).Round(2),
		ActiveDays:   gofakeit.Number(0, 28),
		UpdatedAt:    utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.PartnerID != 0 {
			base.PartnerID = ovr.PartnerID
		}
		if !ovr.MonthDate.IsZero() {
			base.MonthDate = ovr.MonthDate
		}
		if ovr.Orders != 0 {
			base.Orders = ovr.Orders
		}
		if !ovr.GMV.IsZero() {
			base.GMV = ovr.GMV
		}
		if !ovr.NetRevenue.IsZero() {
			base.NetRevenue = ovr.NetRevenue
		}
	}
	return base
}

// NewWorkItem creates a new WorkItem instance with default fake data.
func NewWorkItem(overrideDefaults ...*WorkItem) *WorkItem {
	base := &WorkItem{
		ID:        int64(gofakeit.Number(1, 100000)),
		PartnerID: int64(gofakeit.Number(1, 100000)),
		Status:    StatusToCall,
		IsActive:  true,
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != 0 {
			base.ID = ovr.ID
		}
		if ovr.PartnerID != 0 {
			base.PartnerID = ovr.PartnerID
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		base.IsActive = ovr.IsActive
		if ovr.RefreshedAt != nil {
			base.RefreshedAt = ovr.RefreshedAt
		}
	}
	return base
}

// NewFeedback creates a complete Feedback payload with default fake data.
func NewFeedback(overrideDefaults ...*Feedback) *Feedback {
	base := &Feedback{
		CallOutcome:    gofakeit.RandomString([]string{OutcomeConnected, OutcomeSwitchedOff, OutcomeRNR}),
		Sentiment:      gofakeit.RandomString([]string{SentimentPositive, SentimentNeutral, SentimentNegative}),
		PrimaryConcern: gofakeit.Sentence(4),
		NextAction:     gofakeit.Sentence(4),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.CallOutcome != "" {
			base.CallOutcome = ovr.CallOutcome
		}
		if ovr.Sentiment != "" {
			base.Sentiment = ovr.Sentiment
		}
		if ovr.PrimaryConcern != "" {
			base.PrimaryConcern = ovr.PrimaryConcern
		}
		if ovr.NextAction != "" {
			base.NextAction = ovr.NextAction
		}
		if ovr.FollowUpDate != nil {
			base.FollowUpDate = ovr.FollowUpDate
		}
	}
	return base
}
