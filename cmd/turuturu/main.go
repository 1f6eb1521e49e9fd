package main

import (
	"github.com/turuturu/turuturu/internal/clock"
	"github.com/turuturu/turuturu/internal/config"
	"github.com/turuturu/turuturu/internal/credit"
	"github.com/turuturu/turuturu/internal/identity"
	"github.com/turuturu/turuturu/internal/logger"
	"github.com/turuturu/turuturu/internal/migration"
	"github.com/turuturu/turuturu/internal/music"
	notification "github.com/turuturu/turuturu/internal/notification/service"
	obsmetrics "github.com/turuturu/turuturu/internal/observability/metrics"
	"github.com/turuturu/turuturu/internal/order"
	"github.com/turuturu/turuturu/internal/payment/stripe"
	"github.com/turuturu/turuturu/internal/profile"
	"github.com/turuturu/turuturu/internal/providers/email"
	"github.com/turuturu/turuturu/internal/ratelimit"
	"github.com/turuturu/turuturu/internal/server"
	"github.com/turuturu/turuturu/internal/storage"
	"github.com/turuturu/turuturu/internal/webhook"
	"github.com/turuturu/turuturu/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		db.Module,
		migration.Module,
		obsmetrics.Module,

		profile.Module,
		credit.Module,
		order.Module,
		music.Module,
		storage.Module,
		webhook.Module,

		email.Module,
		notification.Module,
		stripe.Module,
		identity.Module,
		ratelimit.Module,

		server.Module,
	)

	app.Run()
}
