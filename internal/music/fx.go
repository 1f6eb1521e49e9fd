package music

import (
	"github.com/turuturu/turuturu/internal/music/repository"
	"github.com/turuturu/turuturu/internal/music/service"
	"go.uber.org/fx"
)

var Module = fx.Module("music.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
