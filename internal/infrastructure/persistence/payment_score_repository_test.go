package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPaymentScoreRepository creates a GormPaymentScoreRepository with a mocked SQL connection
func newMockPaymentScoreRepository(t *testing.T) (*GormPaymentScoreRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPaymentScoreRepository(gormDB), mock, mockDB
}

func scoreRows(id, customerID uuid.UUID, classification string, score string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version",
		"customer_id", "customer_name", "on_time_rate", "avg_delay_days",
		"payment_score", "classification", "payment_count", "on_time_count",
		"last_calculated_at",
	}).AddRow(
		id, now, now, 1,
		customerID, "Test Customer", decimal.RequireFromString("0.9"), decimal.RequireFromString("2.5"),
		decimal.RequireFromString(score), classification, 10, 9,
		now,
	)
}

func TestGormPaymentScoreRepository_FindByCustomer(t *testing.T) {
	t.Run("finds record for customer", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentScoreRepository(t)
		defer mockDB.Close()

		recordID := uuid.New()
		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "payment_scores" WHERE customer_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnRows(scoreRows(recordID, customerID, "STAR", "92.50"))

		record, err := repo.FindByCustomer(context.Background(), customerID)

		assert.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, recordID, record.ID)
		assert.Equal(t, ledger.PaymentClassificationStar, record.Classification)
		assert.True(t, record.PaymentScore.Equal(decimal.RequireFromString("92.5")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil without error when no record exists", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentScoreRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "payment_scores" WHERE customer_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := repo.FindByCustomer(context.Background(), customerID)

		assert.NoError(t, err)
		assert.Nil(t, record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentScoreRepository_Upsert(t *testing.T) {
	t.Run("inserts with conflict resolution on customer id", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentScoreRepository(t)
		defer mockDB.Close()

		record := &ledger.PaymentScoreRecord{
			CustomerID:   uuid.New(),
			CustomerName: "Test Customer",
		}
		record.ID = uuid.New()
		record.Version = 1
		record.CreatedAt = time.Now()
		record.UpdatedAt = time.Now()
		record.ApplyScore(
			decimal.RequireFromString("0.8"), decimal.RequireFromString("4"),
			decimal.RequireFromString("81"), ledger.PaymentClassificationStar,
			5, 4, time.Now(),
		)

		mock.ExpectExec(`INSERT INTO "payment_scores" .* ON CONFLICT \("customer_id"\) DO UPDATE SET .*`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Upsert(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentScoreRepository_DeleteByCustomer(t *testing.T) {
	t.Run("does not error when no record exists", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentScoreRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectExec(`DELETE FROM "payment_scores" WHERE customer_id = \$1`).
			WithArgs(customerID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.DeleteByCustomer(context.Background(), customerID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentScoreRepository_FindByClassification(t *testing.T) {
	t.Run("filters by segment", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentScoreRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "payment_scores" WHERE classification = \$1 ORDER BY payment_score DESC`).
			WithArgs("RISKY").
			WillReturnRows(scoreRows(uuid.New(), uuid.New(), "RISKY", "42.00"))

		records, err := repo.FindByClassification(context.Background(), ledger.PaymentClassificationRisky, ledger.PaymentScoreFilter{})

		assert.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, ledger.PaymentClassificationRisky, records[0].Classification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentScoreRepository_CountByClassification(t *testing.T) {
	t.Run("returns counts per segment", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentScoreRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT classification, COUNT\(\*\) as total FROM "payment_scores" GROUP BY "classification"`).
			WillReturnRows(sqlmock.NewRows([]string{"classification", "total"}).
				AddRow("STAR", 3).
				AddRow("CRITICAL", 1))

		counts, err := repo.CountByClassification(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, int64(3), counts[ledger.PaymentClassificationStar])
		assert.Equal(t, int64(1), counts[ledger.PaymentClassificationCritical])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
