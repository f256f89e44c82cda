package database

import (
	"context"
	"fmt"

	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Demo credentials written by SeedDemo.
const (
	DemoAdminEmail       = "admin@aiswo.io"
	DemoAdminPassword    = "admin123"
	DemoOperatorPassword = "operator123"
)

// DemoBins returns the six bins the demo deployment starts with.
func DemoBins() []models.Bin {
	return []models.Bin{
		{ID: "bin1", Name: "Main Gate", Location: "Campus Main Gate", FillPct: models.Float(45), WeightKg: models.Float(12.5), Capacity: 50, Status: "Normal", OperatorID: "op1"},
		{ID: "bin2", Name: "Cafeteria", Location: "Food Court Block A", FillPct: models.Float(85), WeightKg: models.Float(21.3), Capacity: 50, Status: "Full", OperatorID: "op1"},
		{ID: "bin3", Name: "Library", Location: "Central Library Entrance", FillPct: models.Float(62), WeightKg: models.Float(15.8), Capacity: 50, Status: "Normal", OperatorID: "op2"},
		{ID: "bin4", Name: "Hostel", Location: "Boys Hostel Block C", FillPct: models.Float(18), WeightKg: models.Float(4.1), Capacity: 50, Status: "Normal", OperatorID: "op2"},
		{ID: "bin5", Name: "Parking", Location: "North Parking Lot", FillPct: models.Float(91), WeightKg: models.Float(24.7), Capacity: 50, Status: "Full", OperatorID: "op3"},
		{ID: "bin6", Name: "Sports Complex", Location: "Stadium East Stand", FillPct: models.Float(33), WeightKg: models.Float(8.2), Capacity: 50, Status: "Normal", OperatorID: models.UnassignedOperator},
	}
}

// DemoOperators returns the demo operators without passwords.
func DemoOperators() []models.Operator {
	return []models.Operator{
		{ID: "op1", Name: "John", Email: "john@aiswo.io", Phone: "+91-9000000001", AssignedBins: models.StringList{"bin1", "bin2"}, Role: models.RoleOperator},
		{ID: "op2", Name: "Priya", Email: "priya@aiswo.io", Phone: "+91-9000000002", AssignedBins: models.StringList{"bin3", "bin4"}, Role: models.RoleOperator},
		{ID: "op3", Name: "Ravi", Email: "ravi@aiswo.io", Phone: "+91-9000000003", AssignedBins: models.StringList{"bin5"}, Role: models.RoleOperator},
	}
}

// SeedDemo fills an empty store with the demo bins, operators and admin.
// A store that already holds bins is left untouched.
func SeedDemo(ctx context.Context, st store.Store, logger *zap.Logger) error {
	existing, err := st.ListBins(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("✓ Bins already seeded, skipping...")
		return nil
	}

	bins := DemoBins()
	logger.Info("🌱 Seeding demo bins...", zap.Int("count", len(bins)))
	for i := range bins {
		if err := st.CreateBin(ctx, &bins[i]); err != nil {
			return fmt.Errorf("failed to seed bin %s: %w", bins[i].ID, err)
		}
	}

	operatorPassword, err := bcrypt.GenerateFromPassword([]byte(DemoOperatorPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	for _, op := range DemoOperators() {
		op.Password = string(operatorPassword)
		if err := st.CreateOperator(ctx, &op); err != nil {
			return fmt.Errorf("failed to seed operator %s: %w", op.ID, err)
		}
		logger.Info("  ✓ Created operator", zap.String("email", op.Email))
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte(DemoAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.Admin{Email: DemoAdminEmail, Name: "Admin User", Password: string(adminPassword)}
	if err := st.UpsertAdmin(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	logger.Info("✓ Successfully seeded demo data",
		zap.String("admin", DemoAdminEmail+" / "+DemoAdminPassword),
		zap.String("operators", "<name>@aiswo.io / "+DemoOperatorPassword),
	)
	return nil
}
