package database

import (
	"fmt"

	"downpour/app/config"
	"downpour/app/logger"
	"downpour/app/model"
	"downpour/app/utils"
)

// InitAdminUser makes sure an admin account matching the configured
// credentials exists, creating or updating it as needed.
func InitAdminUser(cfg *config.Config, log *logger.Logger) error {
	if cfg.Server.Username == "" || cfg.Server.Password == "" {
		return fmt.Errorf("admin credentials are not configured, set server.username and server.password")
	}

	var admin model.User
	result := DB.Where("is_admin = ?", true).First(&admin)

	if result.Error == nil {
		needUpdate := false

		if admin.Username != cfg.Server.Username {
			var conflict model.User
			if DB.Where("username = ? AND id != ?", cfg.Server.Username, admin.ID).First(&conflict).Error == nil {
				return fmt.Errorf("username %q is already taken, cannot rename admin", cfg.Server.Username)
			}
			log.Infof("admin username changed from %q to %q", admin.Username, cfg.Server.Username)
			admin.Username = cfg.Server.Username
			needUpdate = true
		}

		if !utils.VerifyPassword(cfg.Server.Password, admin.Password) {
			hash, err := utils.HashPassword(cfg.Server.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			admin.Password = hash
			needUpdate = true
			log.Infof("admin %q password updated", cfg.Server.Username)
		}

		if needUpdate {
			if err := DB.Save(&admin).Error; err != nil {
				return fmt.Errorf("failed to update admin user: %w", err)
			}
		}
		return nil
	}

	hash, err := utils.HashPassword(cfg.Server.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin = model.User{
		Username: cfg.Server.Username,
		Password: hash,
		IsActive: true,
		IsAdmin:  true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Infof("admin user %q created", cfg.Server.Username)
	return nil
}
