package admin

import (
	"fmt"
	"time"

	"edushare/internal/features/resource"
	"edushare/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type AdminController struct {
	Resources resource.ResourceService
}

func NewAdminController(resources resource.ResourceService) *AdminController {
	return &AdminController{Resources: resources}
}

// StorageReport godoc
// @Summary      Storage report
// @Description  Counts of resources with stored files, legacy-only files and no recoverable file. Use format=xlsx for a spreadsheet export.
// @Tags         admin
// @Produce      json
// @Param        format query string false "json (default) or xlsx"
// @Success      200 {object} resource.FileStatusReport
// @Failure      500 {object} map[string]interface{}
// @Router       /api/admin/storage/report [get]
func (ctrl *AdminController) StorageReport(c *fiber.Ctx) error {
	report, err := ctrl.Resources.StorageReport(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}

	if c.Query("format") == "xlsx" {
		return ctrl.exportXLSX(c, report)
	}
	return c.JSON(report)
}

func (ctrl *AdminController) exportXLSX(c *fiber.Ctx, report *resource.FileStatusReport) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Storage Report"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Resource ID", "Title", "Owner ID", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range report.Missing {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), rec.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), rec.Title)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), rec.OwnerID)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), "file unavailable")
		row++
	}

	// Summary block below the listing
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.Total)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "With stored file")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.WithBlob)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Legacy only")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.LegacyOnly)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Unavailable")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.Unavailable)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}

	filename := fmt.Sprintf("storage-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

// DecommissionLegacy godoc
// @Summary      Decommission legacy storage
// @Description  Permanently disable the legacy uploads fallback. Legacy-only resources become unavailable.
// @Tags         admin
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      500 {object} map[string]interface{}
// @Router       /api/admin/storage/decommission-legacy [post]
func (ctrl *AdminController) DecommissionLegacy(c *fiber.Ctx) error {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := ctrl.Resources.DecommissionLegacy(c.UserContext(), claims.UserID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	return c.JSON(fiber.Map{"message": "Legacy storage decommissioned"})
}
