package adminController

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"waiverdesk/internal/logger"
	"waiverdesk/internal/repositories"
	"waiverdesk/internal/services"

	. "waiverdesk/internal/models"
)

type AdminController struct {
	adminRepo          repositories.AdminUserRepository
	tokenService       *services.TokenService
	transactionService *services.TransactionService
	log                logger.Logger
}

func New(
	adminRepo repositories.AdminUserRepository,
	tokenService *services.TokenService,
	transactionService *services.TransactionService,
) *AdminController {
	return &AdminController{
		adminRepo:          adminRepo,
		tokenService:       tokenService,
		transactionService: transactionService,
		log:                logger.New("AdminController"),
	}
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal Principal
}

func (c *AdminController) Login(ctx context.Context, request LoginRequest) (Session, error) {
	log := c.log.Function("Login")

	username := strings.TrimSpace(request.Username)
	if username == "" || request.Password == "" {
		return Session{}, ErrMissingLogin
	}

	user, err := c.adminRepo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		log.Info("login for unknown user", "username", username)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if !user.CheckPassword(request.Password) {
		log.Info("login with wrong password", "username", username)
		return Session{}, ErrInvalidCredentials
	}

	principal := Principal{Username: user.Username}
	token, expiresAt, err := c.tokenService.Issue(principal)
	if err != nil {
		return Session{}, err
	}

	log.Info("admin logged in", "username", user.Username)
	return Session{Token: token, ExpiresAt: expiresAt, Principal: principal}, nil
}

func (c *AdminController) ListUsers(ctx context.Context) ([]*AdminUser, error) {
	return c.adminRepo.List(ctx)
}

func (c *AdminController) CreateUser(ctx context.Context, request CreateAdminRequest) (*AdminUser, error) {
	log := c.log.Function("CreateUser")

	username := strings.TrimSpace(request.Username)
	if username == "" || request.Password == "" {
		return nil, ErrMissingLogin
	}
	if utf8.RuneCountInString(request.Password) < PasswordMinLength {
		return nil, ErrPasswordTooShort
	}

	user := &AdminUser{Username: username, Password: request.Password}

	err := c.transactionService.Execute(ctx, func(txCtx context.Context) error {
		_, err := c.adminRepo.GetByUsername(txCtx, username)
		switch {
		case err == nil:
			return ErrDuplicateUsername
		case !errors.Is(err, ErrNotFound):
			return err
		}

		return c.adminRepo.Create(txCtx, user)
	})
	if err != nil {
		return nil, err
	}

	log.Info("admin user created", "username", username, "id", user.ID)
	return user, nil
}

// DeleteUser removes the admin with id. Admins cannot remove themselves;
// usernames are compared case-insensitively.
func (c *AdminController) DeleteUser(ctx context.Context, principal Principal, id int) (*AdminUser, error) {
	log := c.log.Function("DeleteUser")

	if id <= 0 {
		return nil, ErrInvalidID
	}

	var deleted *AdminUser
	err := c.transactionService.Execute(ctx, func(txCtx context.Context) error {
		user, err := c.adminRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if strings.EqualFold(user.Username, principal.Username) {
			return ErrSelfDelete
		}

		if err := c.adminRepo.Delete(txCtx, id); err != nil {
			return err
		}

		deleted = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("admin user deleted", "username", deleted.Username, "by", principal.Username)
	return deleted, nil
}
