package webhook

import (
	"github.com/turuturu/turuturu/internal/webhook/repository"
	"github.com/turuturu/turuturu/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
