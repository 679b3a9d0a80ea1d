package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/motionworks/workspace/internal/imagestore"
	"github.com/motionworks/workspace/internal/model"
	"github.com/motionworks/workspace/pkg/response"
)

type ImageHandler struct {
	store *imagestore.Store
}

func NewImageHandler(store *imagestore.Store) *ImageHandler {
	return &ImageHandler{store: store}
}

// UploadSlot handles POST /workspace/images/:slotId with a multipart "file"
// field. Non-image files are skipped; decode failures are surfaced without
// touching the slot's prior value.
func (h *ImageHandler) UploadSlot(c *fiber.Ctx) error {
	// c.Params aliases fasthttp's reused request buffer; the slot ID is kept
	// as a store key past this handler, so it must be copied.
	slotID := utils.CopyString(c.Params("slotId"))
	if slotID == "" {
		return response.ValidationError(c, "Slot ID is required", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "A file field is required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.ValidationError(c, "Could not open the uploaded file", nil)
	}
	defer file.Close()

	stored, err := h.store.Set(slotID, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		var decodeErr *imagestore.DecodeError
		if errors.As(err, &decodeErr) {
			return response.ValidationError(c, "Could not read the image, please retry", nil)
		}
		return response.ServiceError(c, err.Error())
	}
	if !stored {
		return response.ValidationError(c, "Only image files are accepted", nil)
	}

	return response.OK(c, model.SlotResponse{Slot: slotID, HasImage: true})
}

// ClearSlot handles DELETE /workspace/images/:slotId
func (h *ImageHandler) ClearSlot(c *fiber.Ctx) error {
	slotID := c.Params("slotId")
	if slotID == "" {
		return response.ValidationError(c, "Slot ID is required", nil)
	}

	h.store.Clear(slotID)
	return response.NoContent(c)
}

// ListSlots handles GET /workspace/images
func (h *ImageHandler) ListSlots(c *fiber.Ctx) error {
	slots := h.store.Slots()
	out := make([]model.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, model.SlotResponse{Slot: slot, HasImage: true})
	}
	return response.OK(c, out)
}
