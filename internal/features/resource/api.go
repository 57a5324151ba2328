package resource

import (
	"edushare/internal/config"
	"edushare/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ResourceApi struct {
	controller *ResourceController
	config     *config.Config
}

func NewResourceApi(controller *ResourceController, config *config.Config) *ResourceApi {
	return &ResourceApi{
		controller: controller,
		config:     config,
	}
}

func (h *ResourceApi) Setup(app *fiber.App) {
	// Browsing and downloading are public; the optional identity is only
	// used for ownership checks further down
	app.Get("/api/resources", middleware.OptionalAuth(), h.controller.List)
	app.Get("/api/resources/:id", middleware.OptionalAuth(), h.controller.Get)
	app.Get("/api/resources/:id/download", middleware.OptionalAuth(), h.controller.Download)

	// Any authenticated user may upload; update and delete are checked
	// against owner/Admin in the service
	app.Post("/api/resources", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.Upload)
	app.Put("/api/resources/:id", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.Update)
	app.Delete("/api/resources/:id", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.Delete)
}
