package initialize

import (
	"context"

	"waiverdesk/internal/database"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/repositories"
	"waiverdesk/internal/services"

	adminController "waiverdesk/internal/controllers/admin"
)

// CreateAdmin provisions an admin account, the one piece of data a fresh
// production install needs before anyone can sign in.
func CreateAdmin(ctx context.Context, db database.DB, request CreateAdminRequest, log logger.Logger) (*AdminUser, error) {
	log = log.Function("CreateAdmin")
	log.Info("Creating admin user", "username", request.Username)

	controller := adminController.New(
		repositories.NewAdminUser(db),
		nil,
		services.NewTransactionService(db),
	)

	user, err := controller.CreateUser(ctx, request)
	if err != nil {
		return nil, log.Err("failed to create admin user", err, "username", request.Username)
	}

	log.Info("Admin user created", "id", user.ID, "username", user.Username)
	return user, nil
}
