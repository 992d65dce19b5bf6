package handler

import (
	"context"
	"net/http"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/middleware"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

type ContactUsecase interface {
	List(ctx context.Context, ownerID uint, filter dto.ContactFilter, page constants.PaginationParams) ([]dto.ContactResponse, error)
	Get(ctx context.Context, ownerID, id uint) (*dto.ContactResponse, error)
	Create(ctx context.Context, ownerID uint, req dto.ContactRequest) (*dto.ContactResponse, error)
	Update(ctx context.Context, ownerID, id uint, req dto.ContactUpdateRequest) (*dto.ContactResponse, error)
	Delete(ctx context.Context, ownerID, id uint) (*dto.ContactResponse, error)
	UpcomingBirthdays(ctx context.Context, ownerID uint) ([]dto.ContactResponse, error)
}

// ContactHandler serves the contacts of the authenticated user. Every
// operation is scoped to that user.
type ContactHandler struct {
	contacts ContactUsecase
}

func NewContactHandler(contacts ContactUsecase) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

func (h *ContactHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListContacts")
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var filter dto.ContactFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(ctx, c, err)
		return
	}
	page := constants.ParsePaginationParams(c)

	contacts, err := h.contacts.List(ctx, owner, filter, page)
	if err != nil {
		respondError(ctx, c, "List contacts", err)
		return
	}

	logger.DebugWithContext(ctx, "Contacts listed").
		Int("count", len(contacts)).
		Int("skip", page.Skip).
		Int("limit", page.Limit).
		Log()

	c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) Birthdays(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpcomingBirthdays")
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	contacts, err := h.contacts.UpcomingBirthdays(ctx, owner)
	if err != nil {
		respondError(ctx, c, "Upcoming birthdays", err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetContact")
	owner, ok := ownerOf(c)
	if !ok {
		return
	}
	id, ok := parseID(ctx, c, "id")
	if !ok {
		return
	}

	contact, err := h.contacts.Get(ctx, owner, id)
	if err != nil {
		respondError(ctx, c, "Get contact", err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateContact")
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, c, err)
		return
	}

	contact, err := h.contacts.Create(ctx, owner, req)
	if err != nil {
		respondError(ctx, c, "Create contact", err)
		return
	}

	logger.InfoWithContext(ctx, "Contact created").
		Uint("contact_id", contact.ID).
		Log()

	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateContact")
	owner, ok := ownerOf(c)
	if !ok {
		return
	}
	id, ok := parseID(ctx, c, "id")
	if !ok {
		return
	}

	var req dto.ContactUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, c, err)
		return
	}

	contact, err := h.contacts.Update(ctx, owner, id, req)
	if err != nil {
		respondError(ctx, c, "Update contact", err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeleteContact")
	owner, ok := ownerOf(c)
	if !ok {
		return
	}
	id, ok := parseID(ctx, c, "id")
	if !ok {
		return
	}

	contact, err := h.contacts.Delete(ctx, owner, id)
	if err != nil {
		respondError(ctx, c, "Delete contact", err)
		return
	}

	logger.InfoWithContext(ctx, "Contact deleted").
		Uint("contact_id", contact.ID).
		Log()

	c.JSON(http.StatusOK, contact)
}

func ownerOf(c *gin.Context) (uint, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortUnauthorized(c, constants.MsgUnauthorized)
		return 0, false
	}
	return user.ID, true
}
