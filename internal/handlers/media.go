package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/localnerve/luvnest/internal/types"
)

// MediaHandler accepts image and audio uploads for love pages.
type MediaHandler struct {
	Media *services.MediaService
}

// Upload handles POST /api/media
// @Summary Upload media
// @Description Stores an image or audio file and returns its public URL
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image or audio file"
// @Param pageId formData string false "Page the file belongs to"
// @Success 201 {object} models.MediaFile
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 413 {object} utils.ErrorResponseStruct
// @Failure 415 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /media [post]
func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	header, err := c.FormFile("file")
	if err != nil {
		return types.ValidationErrorf("a file is required")
	}

	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	file, err := h.Media.Upload(c.UserContext(), services.Upload{
		OwnerID:  userID,
		PageID:   c.FormValue("pageId"),
		FileName: header.Filename,
		Size:     header.Size,
		Body:     f,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(file)
}
