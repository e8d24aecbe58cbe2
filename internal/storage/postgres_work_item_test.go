package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/model"
)

func TestPostgresRepo_EnsureCurrentItems(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(bindVars(insertMissingItemsSQL)).
		WithArgs(model.StatusToCall, AnyTime{}, AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	inserted, err := repo.EnsureCurrentItems(context.Background(), testAgentID)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_EnsureCurrentItems_Idempotent(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(bindVars(insertMissingItemsSQL)).
		WithArgs(model.StatusToCall, AnyTime{}, AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.EnsureCurrentItems(context.Background(), testAgentID)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ActivateCurrentItems(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(bindVars(insertMissingItemsSQL)).
		WithArgs(model.StatusToCall, AnyTime{}, AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(bindVars(deactivateItemsSQL)).
		WithArgs(AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(bindVars(activateLatestItemsSQL)).
		WithArgs(AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	activated, err := repo.ActivateCurrentItems(context.Background(), testAgentID)

	assert.NoError(t, err)
	assert.Equal(t, int64(5), activated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ActivateCurrentItems_UniqueViolationIsFatal(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(bindVars(insertMissingItemsSQL)).
		WithArgs(model.StatusToCall, AnyTime{}, AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(bindVars(deactivateItemsSQL)).
		WithArgs(AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(bindVars(activateLatestItemsSQL)).
		WithArgs(AnyTime{}, testAgentID).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_work_item_partner"})
	mock.ExpectRollback()

	activated, err := repo.ActivateCurrentItems(context.Background(), testAgentID)

	assert.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	assert.Equal(t, int64(0), activated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ActivateCurrentItems_RollsBackOnDeactivateFailure(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(bindVars(insertMissingItemsSQL)).
		WithArgs(model.StatusToCall, AnyTime{}, AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(bindVars(deactivateItemsSQL)).
		WithArgs(AnyTime{}, testAgentID).
		WillReturnError(&pgconn.PgError{Code: "40P01"})
	mock.ExpectRollback()

	_, err := repo.ActivateCurrentItems(context.Background(), testAgentID)

	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ResetItems(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(bindVars(resetItemsSQL)).
		WithArgs(model.StatusToCall, AnyTime{}, AnyTime{}, testAgentID).
		WillReturnResult(sqlmock.NewResult(0, 7))

	reset, err := repo.ResetItems(context.Background(), testAgentID)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), reset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindWorkItemByID_Found(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	cols := []string{"id", "partner_id", "status", "is_active", "created_at", "refreshed_at", "updated_at"}
	rows := sqlmock.NewRows(cols).
		AddRow(42, 7, model.StatusFollowUp, true, now.Add(-time.Hour), nil, now)

	selectQuery := `SELECT * FROM "work_items" WHERE id = $1 ORDER BY "work_items"."id" LIMIT $2`
	mock.ExpectQuery(selectQuery).
		WithArgs(int64(42), 1).
		WillReturnRows(rows)

	item, err := repo.FindWorkItemByID(context.Background(), 42)

	assert.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(42), item.ID)
	assert.Equal(t, int64(7), item.PartnerID)
	assert.Equal(t, model.StatusFollowUp, item.Status)
	assert.True(t, item.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindWorkItemByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	selectQuery := `SELECT * FROM "work_items" WHERE id = $1 ORDER BY "work_items"."id" LIMIT $2`
	mock.ExpectQuery(selectQuery).
		WithArgs(int64(999), 1).
		WillReturnError(gorm.ErrRecordNotFound)

	item, err := repo.FindWorkItemByID(context.Background(), 999)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, item)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CommitTransition(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()
	followUp := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

	itemCols := []string{"id", "partner_id", "status", "is_active", "created_at", "refreshed_at", "updated_at"}
	itemRows := sqlmock.NewRows(itemCols).
		AddRow(42, 7, model.StatusToCall, true, now.Add(-time.Hour), nil, now.Add(-time.Minute))

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "work_items" WHERE id = $1 AND is_active ORDER BY "work_items"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(int64(42), 1).
		WillReturnRows(itemRows)

	updateQuery := `UPDATE "work_items" SET "status"=$1,"updated_at"=$2 WHERE "id" = $3`
	mock.ExpectExec(updateQuery).
		WithArgs(model.StatusFollowUp, AnyTime{}, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	insertQuery := `INSERT INTO "activity_log" ("work_item_id","partner_id","agent_id","status","call_outcome","sentiment","primary_concern","next_action","follow_up_date","details","created_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(
			int64(42), int64(7), testAgentID, model.StatusFollowUp,
			model.OutcomeConnected, model.SentimentPositive,
			"pricing", "share revised quote", followUp, nil, AnyTime{},
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))

	mock.ExpectCommit()

	entry := model.ActivityLogEntry{
		AgentID:        testAgentID,
		CallOutcome:    model.OutcomeConnected,
		Sentiment:      model.SentimentPositive,
		PrimaryConcern: "pricing",
		NextAction:     "share revised quote",
		FollowUpDate:   &followUp,
	}

	err := repo.CommitTransition(context.Background(), 42, model.StatusFollowUp, entry)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CommitTransition_RollsBackWhenLogInsertFails(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	itemCols := []string{"id", "partner_id", "status", "is_active", "created_at", "refreshed_at", "updated_at"}
	itemRows := sqlmock.NewRows(itemCols).
		AddRow(42, 7, model.StatusToCall, true, now.Add(-time.Hour), nil, now.Add(-time.Minute))

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "work_items" WHERE id = $1 AND is_active ORDER BY "work_items"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(int64(42), 1).
		WillReturnRows(itemRows)

	// The status update lands, then the activity insert fails. The whole
	// transaction must roll back so no status change survives without its
	// log entry.
	updateQuery := `UPDATE "work_items" SET "status"=$1,"updated_at"=$2 WHERE "id" = $3`
	mock.ExpectExec(updateQuery).
		WithArgs(model.StatusNotInterested, AnyTime{}, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	insertQuery := `INSERT INTO "activity_log" ("work_item_id","partner_id","agent_id","status","call_outcome","sentiment","primary_concern","next_action","follow_up_date","details","created_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(
			int64(42), int64(7), testAgentID, model.StatusNotInterested,
			model.OutcomeConnected, model.SentimentNegative,
			"switched to competitor", "close out", nil, nil, AnyTime{},
		).
		WillReturnError(&pgconn.PgError{Code: "40P01"})

	mock.ExpectRollback()

	entry := model.ActivityLogEntry{
		AgentID:        testAgentID,
		CallOutcome:    model.OutcomeConnected,
		Sentiment:      model.SentimentNegative,
		PrimaryConcern: "switched to competitor",
		NextAction:     "close out",
	}

	err := repo.CommitTransition(context.Background(), 42, model.StatusNotInterested, entry)

	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CommitTransition_ItemVanished(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "work_items" WHERE id = $1 AND is_active ORDER BY "work_items"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(int64(42), 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectRollback()

	entry := model.ActivityLogEntry{
		AgentID:        testAgentID,
		CallOutcome:    model.OutcomeRNR,
		Sentiment:      model.SentimentNeutral,
		PrimaryConcern: "unreachable",
		NextAction:     "retry tomorrow",
	}

	err := repo.CommitTransition(context.Background(), 42, model.StatusRNR1, entry)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FetchBoardRows(t *testing.T) {
	repo, mock := newTestRepo(t)
	monthStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	lastOrder := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	cols := []string{
		"work_item_id", "status", "refreshed_at",
		"partner_id", "external_partner_id", "partner_name", "city", "phone",
		"partner_type", "segment_tag", "price_list", "wallet_amount", "last_order_date",
		"orders_this_month", "revenue_this_month", "gmv_this_month", "active_days_this_month",
		"last_active_month", "latest_follow_up_date",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(
			int64(1), model.StatusToCall, nil,
			int64(7), "OH-1001", "Sunrise Diagnostics", "Bengaluru", "9999900001",
			"At-Home", model.SegmentPortfolio, "standard", "150.50", lastOrder,
			4, "1200.00", "4800.00", 3,
			nil, nil,
		).
		AddRow(
			int64(2), model.StatusFollowUp, nil,
			int64(8), "OH-1002", "Lakeside Labs", "Chennai", "9999900002",
			"In Clinic", model.SegmentLongtail, "", nil, nil,
			nil, nil, nil, nil,
			monthStart.AddDate(0, -2, 0), nil,
		)

	mock.ExpectQuery(bindVars(boardRowsSQL)).
		WithArgs(testAgentID, monthStart).
		WillReturnRows(rows)

	got, err := repo.FetchBoardRows(context.Background(), testAgentID, monthStart)

	assert.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "OH-1001", got[0].ExternalPartnerID)
	require.NotNil(t, got[0].OrdersThisMonth)
	assert.Equal(t, 4, *got[0].OrdersThisMonth)
	require.NotNil(t, got[0].LastOrderDate)
	assert.True(t, got[0].RevenueThisMonth.Valid)
	assert.Equal(t, "1200", got[0].RevenueThisMonth.Decimal.String())

	assert.Equal(t, "OH-1002", got[1].ExternalPartnerID)
	assert.Nil(t, got[1].OrdersThisMonth)
	assert.Nil(t, got[1].LastOrderDate)
	assert.False(t, got[1].RevenueThisMonth.Valid)
	require.NotNil(t, got[1].LastActiveMonth)

	assert.NoError(t, mock.ExpectationsWereMet())
}
