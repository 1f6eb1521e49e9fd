package migration

import (
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	musicdomain "github.com/turuturu/turuturu/internal/music/domain"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	webhookdomain "github.com/turuturu/turuturu/internal/webhook/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Run creates or updates the schema on startup so a fresh database is
// usable without a separate migration step.
func Run(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&profiledomain.Profile{},
		&orderdomain.Order{},
		&orderdomain.Submission{},
		&creditdomain.CreditDebit{},
		&musicdomain.MusicFile{},
		&webhookdomain.WebhookReceipt{},
	)
}

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return Run(conn)
	}),
)
