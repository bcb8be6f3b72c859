package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const PasswordMinLength = 8

type AdminUser struct {
	BaseModel
	Username     string `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null"             json:"-"`
	Password     string `gorm:"-"                                      json:"-"`
}

// BeforeCreate hashes Password when set, so callers never store plaintext.
func (u *AdminUser) BeforeCreate(tx *gorm.DB) error {
	if u.Password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.PasswordHash = string(hash)
	u.Password = ""
	return nil
}

func (u *AdminUser) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Principal is the authenticated admin behind a request.
type Principal struct {
	Username string `json:"username"`
}
