package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sugarline/bakehouse/internal/database"
	"github.com/sugarline/bakehouse/internal/entity"
	"github.com/sugarline/bakehouse/internal/lifecycle"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example orders if the table is empty.
func (s *Seeder) Orders(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		if s.logger != nil {
			s.logger.Info("orders already seeded", zap.Int("count", count))
		}
		return nil
	}

	now := time.Now().UTC()
	pickup := now.AddDate(0, 0, 5)
	samples := []entity.Order{
		{
			CustomerID:      1,
			ProductID:       1,
			Size:            "8_inch",
			Tiers:           2,
			Flavor:          "vanilla",
			Icing:           "buttercream",
			Colors:          []string{"ivory", "blush"},
			TotalAmount:     4500,
			DepositRequired: 2250,
			BalanceDue:      4500,
			Status:          lifecycle.StatusPending,
			PickupDate:      pickup,
			PickupTime:      "14:00",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			CustomerID:      2,
			ProductID:       3,
			Size:            "half_sheet",
			Tiers:           1,
			Flavor:          "chocolate",
			Icing:           "ganache",
			Decorations:     []string{"chocolate_drip", "candles"},
			TotalAmount:     9100,
			DepositRequired: 4550,
			BalanceDue:      9100,
			Status:          lifecycle.StatusPending,
			PickupDate:      pickup.AddDate(0, 0, 2),
			PickupTime:      "10:30",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}

	for _, sample := range samples {
		order := sample
		if _, err := s.db.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
