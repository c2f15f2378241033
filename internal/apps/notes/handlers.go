package notes

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NoteHandler struct {
	noteService *NoteService
}

func NewNoteHandler(noteService *NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// List handles GET /notes?milestone=.
func (h *NoteHandler) List(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	notes, err := h.noteService.List(email, c.Query("milestone"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch notes",
		})
	}
	return c.JSON(NotesListResponse{Notes: notes})
}

// Create handles POST /notes.
func (h *NoteHandler) Create(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	note, err := h.noteService.Create(email, &req)
	if err != nil {
		return h.fail(c, err, "Failed to create note")
	}
	return c.Status(fiber.StatusCreated).JSON(NoteResponse{Note: note})
}

// Get handles GET /notes/:id.
func (h *NoteHandler) Get(c *fiber.Ctx) error {
	email, id, err := h.target(c)
	if err != nil {
		return err
	}

	note, err := h.noteService.Get(email, id)
	if err != nil {
		return h.fail(c, err, "Failed to fetch note")
	}
	return c.JSON(NoteResponse{Note: note})
}

// Update handles PUT /notes/:id.
func (h *NoteHandler) Update(c *fiber.Ctx) error {
	email, id, err := h.target(c)
	if err != nil {
		return err
	}

	var req UpdateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	note, err := h.noteService.Update(email, id, &req)
	if err != nil {
		return h.fail(c, err, "Failed to update note")
	}
	return c.JSON(NoteResponse{Note: note})
}

// Delete handles DELETE /notes/:id.
func (h *NoteHandler) Delete(c *fiber.Ctx) error {
	email, id, err := h.target(c)
	if err != nil {
		return err
	}

	if err := h.noteService.Delete(email, id); err != nil {
		return h.fail(c, err, "Failed to delete note")
	}
	return c.JSON(fiber.Map{"message": "Note deleted"})
}

// target resolves the caller and the :id param. When it returns a non-nil
// error the response has already been written.
func (h *NoteHandler) target(c *fiber.Ctx) (string, uuid.UUID, error) {
	email, err := identity.GetEmail(c)
	if err != nil {
		return "", uuid.Nil, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		// An id that cannot exist is reported like any other missing note.
		return "", uuid.Nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Note not found",
		})
	}
	return email, id, nil
}

func (h *NoteHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNoteNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Note not found",
		})
	case errors.Is(err, ErrContentRequired), errors.Is(err, ErrTitleTooLong):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: fallback,
	})
}
