package repositories

import (
	"context"
	"errors"

	"waiverdesk/internal/database"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/services"

	"gorm.io/gorm"
)

type AdminUserRepository interface {
	Create(ctx context.Context, user *AdminUser) error
	GetByID(ctx context.Context, id int) (*AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*AdminUser, error)
	List(ctx context.Context) ([]*AdminUser, error)
	Delete(ctx context.Context, id int) error
}

type adminUserRepository struct {
	db  database.DB
	log logger.Logger
}

func NewAdminUser(db database.DB) AdminUserRepository {
	return &adminUserRepository{
		db:  db,
		log: logger.New("adminUserRepository"),
	}
}

func (r *adminUserRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *adminUserRepository) Create(ctx context.Context, user *AdminUser) error {
	log := r.log.Function("Create")

	err := r.getDB(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return log.Err("failed to create admin user", err, "username", user.Username)
	}

	return nil
}

func (r *adminUserRepository) GetByID(ctx context.Context, id int) (*AdminUser, error) {
	return r.first(ctx, "GetByID", "id = ?", id)
}

func (r *adminUserRepository) GetByUsername(ctx context.Context, username string) (*AdminUser, error) {
	return r.first(ctx, "GetByUsername", "username = ?", username)
}

func (r *adminUserRepository) first(ctx context.Context, function string, query string, arg any) (*AdminUser, error) {
	var user AdminUser
	err := r.getDB(ctx).First(&user, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.log.Function(function).Err("failed to get admin user", err, "arg", arg)
	}

	return &user, nil
}

func (r *adminUserRepository) List(ctx context.Context) ([]*AdminUser, error) {
	log := r.log.Function("List")

	var users []*AdminUser
	if err := r.getDB(ctx).Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, log.Err("failed to list admin users", err)
	}

	return users, nil
}

// Delete removes the row for good so the username can be reused.
func (r *adminUserRepository) Delete(ctx context.Context, id int) error {
	log := r.log.Function("Delete")

	result := r.getDB(ctx).Unscoped().Delete(&AdminUser{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete admin user", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
