package order

import (
	"github.com/turuturu/turuturu/internal/order/repository"
	"github.com/turuturu/turuturu/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
