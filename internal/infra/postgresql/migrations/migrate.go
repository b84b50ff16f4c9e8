package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Ryan-Karimov/notification-service/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createAPIKeysTable(),
		createTemplatesTable(),
		createNotificationsTable(),
		createDeliveryAttemptsTable(),
	})

	return m.Migrate()
}

func createAPIKeysTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_api_keys",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.APIKeyModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys (key)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.APIKeyModel{})
		},
	}
}

func createTemplatesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_templates",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TemplateModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_api_key_code ON templates (api_key_id, code)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TemplateModel{})
		},
	}
}

func createNotificationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_notifications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_notifications_api_key_id ON notifications (api_key_id)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications (status)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_channel_status ON notifications (channel, status, priority)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_scheduled_at ON notifications (scheduled_at) WHERE scheduled_at IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_next_retry_at ON notifications (next_retry_at) WHERE next_retry_at IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationModel{})
		},
	}
}

func createDeliveryAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_delivery_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_notification_id ON delivery_attempts (notification_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
		},
	}
}
