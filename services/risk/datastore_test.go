//go:build integration

package risk

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PostgresTestSuite struct {
	suite.Suite
}

func TestPostgresTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresTestSuite))
}

func (suite *PostgresTestSuite) SetupSuite() {
	pg, err := NewPostgres()
	suite.Require().NoError(err, "Failed to get postgres conn")

	m, err := pg.NewMigrate()
	suite.Require().NoError(err, "Failed to create migrate instance")

	ver, dirty, _ := m.Version()
	if dirty {
		suite.Require().NoError(m.Force(int(ver)))
	}
	if ver > 0 {
		suite.Require().NoError(m.Down(), "Failed to migrate down cleanly")
	}

	suite.Require().NoError(pg.Migrate(), "Failed to fully migrate")
}

func (suite *PostgresTestSuite) SetupTest() {
	suite.CleanDB()
}

func (suite *PostgresTestSuite) TearDownTest() {
	suite.CleanDB()
}

func (suite *PostgresTestSuite) CleanDB() {
	tables := []string{"risk_assessments", "risk_config", "payments"}

	pg, err := NewPostgres()
	suite.Require().NoError(err, "Failed to get postgres conn")

	for _, table := range tables {
		_, err = pg.RawDB().Exec("delete from " + table)
		suite.Require().NoError(err, "Failed to get clean table")
	}
}

func (suite *PostgresTestSuite) TestGetActiveConfigEmpty() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	config, err := pg.GetActiveConfig(context.Background())
	suite.Require().NoError(err)
	suite.Assert().Nil(config)
}

func (suite *PostgresTestSuite) TestSetActiveConfig() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	first, err := pg.SetActiveConfig(ctx, &Config{
		Mode:           ModeLow,
		Thresholds:     ThresholdsFor(ModeLow),
		ChangedBy:      "system",
		AutoEscalation: true,
	})
	suite.Require().NoError(err)
	suite.Assert().True(first.IsActive)

	second, err := pg.SetActiveConfig(ctx, &Config{
		Mode:           ModeHigh,
		Thresholds:     ThresholdsFor(ModeHigh),
		ChangedBy:      "system",
		AutoEscalation: false,
	})
	suite.Require().NoError(err)
	suite.Assert().Equal(ModeHigh, second.Mode)
	suite.Assert().False(second.AutoEscalation)
	suite.Assert().Equal(0.01, second.Thresholds.SpreadThreshold)

	// only the newest row stays active
	active, err := pg.GetActiveConfig(ctx)
	suite.Require().NoError(err)
	suite.Require().NotNil(active)
	suite.Assert().Equal(ModeHigh, active.Mode)

	var count int
	suite.Require().NoError(pg.RawDB().Get(&count,
		"select count(*) from risk_config where is_active = true"))
	suite.Assert().Equal(1, count)
}

func (suite *PostgresTestSuite) TestUpsertAssessment() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	transactionID := suite.insertPayment("250000.00", "AED")

	assessmentID, err := uuid.NewV7()
	suite.Require().NoError(err)

	stored, err := pg.UpsertAssessment(ctx, &Assessment{
		AssessmentID:      assessmentID,
		TransactionID:     transactionID,
		RiskScore:         decimal.NewFromInt(35),
		RiskFactors:       []string{"HIGH_VALUE", "HIGH_RISK_CURRENCY"},
		RecommendedAction: ActionEnhancedMonitoring,
	})
	suite.Require().NoError(err)
	suite.Assert().Equal(assessmentID, stored.AssessmentID)
	suite.Assert().False(stored.AssessedAt.IsZero())

	// a reassessment keeps the original id and refreshes the verdict
	replacementID, err := uuid.NewV7()
	suite.Require().NoError(err)

	updated, err := pg.UpsertAssessment(ctx, &Assessment{
		AssessmentID:      replacementID,
		TransactionID:     transactionID,
		RiskScore:         decimal.NewFromInt(55),
		RiskFactors:       []string{"HIGH_VALUE", "HIGH_RISK_CURRENCY", "HIGH_FREQUENCY"},
		RecommendedAction: ActionManualReview,
	})
	suite.Require().NoError(err)
	suite.Assert().Equal(assessmentID, updated.AssessmentID)
	suite.Assert().True(updated.RiskScore.Equal(decimal.NewFromInt(55)))
	suite.Assert().Equal(ActionManualReview, updated.RecommendedAction)
}

func (suite *PostgresTestSuite) TestCountRecentDebtorPayments() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		suite.insertPayment("100.00", "USD")
	}

	count, err := pg.CountRecentDebtorPayments(ctx, "GB29NWBK60161331926819")
	suite.Require().NoError(err)
	suite.Assert().Equal(3, count)

	count, err = pg.CountRecentDebtorPayments(ctx, "FR1420041010050500013M02606")
	suite.Require().NoError(err)
	suite.Assert().Equal(0, count)
}

func (suite *PostgresTestSuite) insertPayment(amount, currency string) uuid.UUID {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	transactionID, err := uuid.NewV7()
	suite.Require().NoError(err)

	_, err = pg.RawDB().Exec(`
	insert into payments (transaction_id, uetr, amount, currency, debtor_account,
		creditor_account, payment_purpose, settlement_method, status, idempotency_key)
	values ($1, $2, $3, $4, $5, $6, 'TRADE', 'PVP', 'INITIATED', $7)`,
		transactionID, uuid.New(), amount, currency,
		"GB29NWBK60161331926819", "DE89370400440532013000", uuid.New())
	suite.Require().NoError(err)

	return transactionID
}
