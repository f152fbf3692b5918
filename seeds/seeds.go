package seeds

import (
	"errors"
	"fmt"

	"procurement-backend/config"
	"procurement-backend/db/models"
	"procurement-backend/users/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// procurementStaff is the default roster for a fresh installation: one person
// per role that takes part in approval routing.
var procurementStaff = []models.User{
	{Name: "Procurement Officer", Email: "procurement@agency.gov", Role: models.ProcurementOfficerRole, Department: "Procurement"},
	{Name: "Canvasser", Email: "canvasser@agency.gov", Role: models.CanvasserRole, Department: "Procurement"},
	{Name: "BAC Secretariat", Email: "bac.secretariat@agency.gov", Role: models.BACSecretariatRole, Department: "Bids and Awards Committee"},
	{Name: "BAC Chair", Email: "bac.chair@agency.gov", Role: models.BACChairRole, Department: "Bids and Awards Committee"},
	{Name: "BAC Member", Email: "bac.member@agency.gov", Role: models.BACMemberRole, Department: "Bids and Awards Committee"},
	{Name: "System Administrator", Email: "admin@agency.gov", Role: models.AdminRole, Department: "ICT"},
}

// SeedProcurementUsers creates the default roster. Users that already exist
// (matched by email) are left alone, so the seeder can run on every start.
func SeedProcurementUsers(db *gorm.DB) (int, error) {
	logger := config.GetLogger()
	logger.Info("Starting procurement users seeding...")

	users := repositories.NewUserRepository(db)
	createdCount := 0
	for _, staff := range procurementStaff {
		user := staff
		user.Active = true

		_, err := users.GetUserByEmail(user.Email)
		if err == nil {
			logger.Debug("Procurement user already exists", zap.String("email", user.Email))
			continue
		}
		if !errors.Is(err, repositories.ErrUserNotFound) {
			logger.Error("Error checking for existing procurement user",
				zap.String("email", user.Email),
				zap.Error(err))
			return createdCount, fmt.Errorf("failed to check user %s: %w", user.Email, err)
		}

		if _, err := users.CreateUser(&user); err != nil {
			logger.Error("Failed to create procurement user",
				zap.String("email", user.Email),
				zap.Error(err))
			return createdCount, fmt.Errorf("failed to create user %s: %w", user.Email, err)
		}
		createdCount++
		logger.Info("Created procurement user", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	}

	logger.Info("Procurement users seeding completed", zap.Int("created", createdCount))
	return createdCount, nil
}
