package profile

import (
	"github.com/turuturu/turuturu/internal/profile/repository"
	"github.com/turuturu/turuturu/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
