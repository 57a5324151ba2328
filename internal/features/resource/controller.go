package resource

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"edushare/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type ResourceController struct {
	Service ResourceService
}

func NewResourceController(service ResourceService) *ResourceController {
	return &ResourceController{Service: service}
}

// httpError maps the service error taxonomy onto status codes
func httpError(c *fiber.Ctx, err error) error {
	switch {
	case IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrFileNotAvailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		// Storage internals are not leaked to external callers
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
}

// Upload godoc
// @Summary      Upload a resource
// @Description  Upload a study material with its metadata
// @Tags         resources
// @Accept       multipart/form-data
// @Produce      json
// @Param        file        formData file   true  "File to upload"
// @Param        title       formData string true  "Title"
// @Param        description formData string false "Description"
// @Param        subject     formData string false "Subject"
// @Param        year        formData string false "Year"
// @Param        semester    formData string false "Semester"
// @Param        exam_type   formData string false "Exam type"
// @Param        category    formData string false "Category"
// @Param        tags        formData string false "Comma-separated tags"
// @Success      201 {object} View
// @Failure      400 {object} map[string]interface{}
// @Failure      401 {object} map[string]interface{}
// @Failure      500 {object} map[string]interface{}
// @Router       /api/resources [post]
func (ctrl *ResourceController) Upload(c *fiber.Ctx) error {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file required"})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Error retrieving file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Error retrieving file"})
	}

	in := UploadInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Subject:     c.FormValue("subject"),
		Year:        c.FormValue("year"),
		Semester:    c.FormValue("semester"),
		ExamType:    c.FormValue("exam_type"),
		Category:    c.FormValue("category"),
		Tags:        splitTags(c.FormValue("tags")),
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Filename:    fileHeader.Filename,
	}

	res, err := ctrl.Service.Upload(c.UserContext(), claims.UserID, in)
	if err != nil {
		return httpError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"resource": res.ToView()})
}

// List godoc
// @Summary      List resources
// @Description  List resources matching the given filters
// @Tags         resources
// @Produce      json
// @Param        subject   query string false "Subject"
// @Param        category  query string false "Category"
// @Param        year      query string false "Year"
// @Param        semester  query string false "Semester"
// @Param        exam_type query string false "Exam type"
// @Param        owner     query string false "Owner ID"
// @Param        status    query string false "Status"
// @Param        q         query string false "Text search over title, description, tags"
// @Success      200 {object} map[string]interface{}
// @Router       /api/resources [get]
func (ctrl *ResourceController) List(c *fiber.Ctx) error {
	filter := Filter{
		Subject:  c.Query("subject"),
		Category: c.Query("category"),
		Year:     c.Query("year"),
		Semester: c.Query("semester"),
		ExamType: c.Query("exam_type"),
		OwnerID:  c.Query("owner"),
		Status:   c.Query("status"),
		Search:   c.Query("q"),
	}

	resources, err := ctrl.Service.List(c.UserContext(), filter)
	if err != nil {
		return httpError(c, err)
	}

	views := make([]View, 0, len(resources))
	for _, res := range resources {
		views = append(views, res.ToView())
	}
	return c.JSON(fiber.Map{"resources": views})
}

// Get godoc
// @Summary      Get a resource
// @Tags         resources
// @Produce      json
// @Param        id path string true "Resource ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Router       /api/resources/{id} [get]
func (ctrl *ResourceController) Get(c *fiber.Ctx) error {
	res, err := ctrl.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"resource": res.ToView()})
}

// Update godoc
// @Summary      Update resource metadata
// @Description  Update descriptive fields; storage references and counters cannot be changed here
// @Tags         resources
// @Accept       json
// @Produce      json
// @Param        id path string true "Resource ID"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]interface{}
// @Failure      403 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Router       /api/resources/{id} [put]
func (ctrl *ResourceController) Update(c *fiber.Ctx) error {
	claims, _ := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	res, err := ctrl.Service.Update(c.UserContext(), c.Params("id"), claims, fields)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"resource": res.ToView()})
}

// Delete godoc
// @Summary      Delete a resource
// @Description  Delete a resource and release its stored file
// @Tags         resources
// @Param        id path string true "Resource ID"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Router       /api/resources/{id} [delete]
func (ctrl *ResourceController) Delete(c *fiber.Ctx) error {
	claims, _ := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	if err := ctrl.Service.Delete(c.UserContext(), c.Params("id"), claims); err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Deleted"})
}

// Download godoc
// @Summary      Download a resource file
// @Description  Stream the stored file and count the download
// @Tags         resources
// @Produce      octet-stream
// @Param        id path string true "Resource ID"
// @Success      200
// @Failure      404 {object} map[string]interface{}
// @Router       /api/resources/{id}/download [get]
func (ctrl *ResourceController) Download(c *fiber.Ctx) error {
	result, err := ctrl.Service.Download(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpError(c, err)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(result.Filename, `"`, "")))
	c.Response().Header.SetContentLength(int(result.Size))
	return c.Send(result.Data)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
