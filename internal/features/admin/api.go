package admin

import (
	"edushare/internal/config"
	"edushare/internal/middleware"
	"edushare/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type AdminApi struct {
	controller *AdminController
	config     *config.Config
}

func NewAdminApi(controller *AdminController, config *config.Config) *AdminApi {
	return &AdminApi{
		controller: controller,
		config:     config,
	}
}

func (h *AdminApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)
	adminOnly := middleware.RequireRoles(utils.RoleAdmin)

	app.Get("/api/admin/storage/report", auth, adminOnly, h.controller.StorageReport)
	app.Post("/api/admin/storage/decommission-legacy", auth, adminOnly, h.controller.DecommissionLegacy)
}
