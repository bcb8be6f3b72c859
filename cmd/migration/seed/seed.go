package seed

import (
	"time"

	"waiverdesk/config"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/utils"

	"gorm.io/gorm"
)

const (
	DefaultWaiverCount = 500
	seedRandom         = 20240601
	seedYears          = 3
	batchSize          = 100
)

// Seed loads development admins and a deterministic set of waivers spread
// over the last few years. Waivers are only generated into an empty table.
func Seed(db *gorm.DB, config config.Config, log logger.Logger, count int, now time.Time) error {
	log = log.Function("seed")
	log.Info("Seeding development data", "environment", config.Environment, "waivers", count)

	admins := []AdminUser{
		{Username: "admin", Password: "password123"},
		{Username: "frontdesk", Password: "password123"},
	}

	for _, admin := range admins {
		var existing AdminUser
		if err := db.First(&existing, "username = ?", admin.Username).Error; err == nil {
			log.Info("Admin already exists", "username", admin.Username)
			continue
		}
		log.Info("Seeding admin", "username", admin.Username)
		if err := db.Create(&admin).Error; err != nil {
			return log.Err("failed to create admin", err, "username", admin.Username)
		}
	}

	var existing int64
	if err := db.Model(&Waiver{}).Count(&existing).Error; err != nil {
		return log.Err("failed to count waivers", err)
	}
	if existing > 0 {
		log.Info("Waivers already exist, skipping", "count", existing)
		return nil
	}

	generated := utils.NewWaiverGenerator(seedRandom, now, seedYears).Generate(count)
	waivers := make([]*Waiver, 0, len(generated))
	for _, g := range generated {
		waivers = append(waivers, g.Request.ToWaiver(g.SignedAt, "127.0.0.1", "seed"))
	}

	if err := db.CreateInBatches(waivers, batchSize).Error; err != nil {
		return log.Err("failed to seed waivers", err)
	}

	log.Info("Seeded waivers", "count", len(waivers))
	return nil
}
