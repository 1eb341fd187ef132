package database

import "downpour/app/model"

func AutoMigrate() error {
	return DB.AutoMigrate(
		&model.User{},
		&model.QueueItem{},
		&model.ScheduledDownload{},
		&model.DownloadHistory{},
		&model.Preferences{},
	)
}
