package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	"github.com/Payphone-Digital/contacts-api/internal/model"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/sanitize"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContactService struct {
	contacts  ContactStore
	sanitizer *sanitize.Sanitizer
	loc       *time.Location
	now       func() time.Time
}

// NewContactService builds the directory service. Birthday windows are
// computed in loc.
func NewContactService(contacts ContactStore, sanitizer *sanitize.Sanitizer, loc *time.Location) *ContactService {
	if sanitizer == nil {
		sanitizer = sanitize.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ContactService{
		contacts:  contacts,
		sanitizer: sanitizer,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *ContactService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ContactService) List(ctx context.Context, ownerID uint, filter dto.ContactFilter, page constants.PaginationParams) ([]dto.ContactResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "ListContacts")

	skip := max(page.Skip, constants.MinSkip)
	limit := min(max(page.Limit, constants.MinLimit), constants.MaxLimit)

	filter.FirstName = strings.TrimSpace(filter.FirstName)
	filter.LastName = strings.TrimSpace(filter.LastName)
	filter.Email = strings.TrimSpace(filter.Email)

	contacts, err := s.contacts.List(ctx, ownerID, filter, skip, limit)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return contactResponses(contacts), nil
}

func (s *ContactService) Get(ctx context.Context, ownerID, id uint) (*dto.ContactResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "GetContact")

	contact, err := s.contacts.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrContactNotFound, fmt.Sprintf("Contact %d not found", id))
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	resp := contactResponse(contact)
	return &resp, nil
}

func (s *ContactService) Create(ctx context.Context, ownerID uint, req dto.ContactRequest) (*dto.ContactResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "CreateContact")

	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		return nil, err
	}

	contact := &model.Contact{
		FirstName:      s.sanitizer.Text(req.FirstName),
		LastName:       s.sanitizer.Text(req.LastName),
		Email:          normalizeEmail(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Birthday:       birthday,
		AdditionalInfo: s.sanitizer.TextPtr(req.AdditionalInfo),
		OwnerID:        ownerID,
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrContactEmailExists
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	resp := contactResponse(contact)
	return &resp, nil
}

// Update overwrites only the fields present in req.
func (s *ContactService) Update(ctx context.Context, ownerID, id uint, req dto.ContactUpdateRequest) (*dto.ContactResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "UpdateContact")

	changes, err := s.changesFrom(req)
	if err != nil {
		return nil, err
	}

	var contact *model.Contact
	if len(changes) == 0 {
		contact, err = s.contacts.Get(ctx, ownerID, id)
	} else {
		contact, err = s.contacts.Update(ctx, ownerID, id, changes)
	}

	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.ErrContactNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperrors.ErrContactEmailExists
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Contact updated").
		Uint("contact_id", id).
		Int("fields", len(changes)).
		Log()

	resp := contactResponse(contact)
	return &resp, nil
}

func (s *ContactService) Delete(ctx context.Context, ownerID, id uint) (*dto.ContactResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "DeleteContact")

	contact, err := s.contacts.Delete(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrContactNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	resp := contactResponse(contact)
	return &resp, nil
}

func (s *ContactService) changesFrom(req dto.ContactUpdateRequest) (map[string]interface{}, error) {
	changes := make(map[string]interface{})

	if req.FirstName != nil {
		changes["first_name"] = s.sanitizer.Text(*req.FirstName)
	}
	if req.LastName != nil {
		changes["last_name"] = s.sanitizer.Text(*req.LastName)
	}
	if req.Email != nil {
		changes["email"] = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		changes["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Birthday != nil {
		birthday, err := parseBirthday(*req.Birthday)
		if err != nil {
			return nil, err
		}
		changes["birthday"] = birthday
	}
	if req.AdditionalInfo != nil {
		changes["additional_info"] = s.sanitizer.TextPtr(req.AdditionalInfo)
	}

	return changes, nil
}

func parseBirthday(value string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return datatypes.Date{}, apperrors.WrapError(apperrors.ErrInvalidInput, err)
	}
	return datatypes.Date(t), nil
}

func contactResponse(c *model.Contact) dto.ContactResponse {
	return dto.ContactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		Birthday:       time.Time(c.Birthday).Format(constants.DateLayout),
		AdditionalInfo: c.AdditionalInfo,
		CreatedAt:      c.CreatedAt,
		OwnerID:        c.OwnerID,
	}
}

func contactResponses(contacts []model.Contact) []dto.ContactResponse {
	out := make([]dto.ContactResponse, 0, len(contacts))
	for i := range contacts {
		out = append(out, contactResponse(&contacts[i]))
	}
	return out
}
