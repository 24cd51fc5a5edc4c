package routes

import (
	"github.com/kataras/iris/v12"
	"github.com/rs/zerolog/log"

	"github.com/SubletMatch/SubletMatch/storage"
)

// Health reports liveness and database reachability.
func Health(ctx iris.Context) {
	if err := storage.Ping(storage.DB); err != nil {
		log.Error().Err(err).Msg("health check failed to reach database")
		ctx.JSON(iris.Map{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	ctx.JSON(iris.Map{
		"status":   "healthy",
		"database": "connected",
	})
}
