package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/model"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactRepository only exposes owner-scoped queries.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) owned(ctx context.Context, ownerID uint) *gorm.DB {
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
}

func (r *ContactRepository) List(ctx context.Context, ownerID uint, filter dto.ContactFilter, skip, limit int) ([]model.Contact, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ListContacts")

	logger.DebugWithContext(ctx, "Listing contacts").
		Uint("owner_id", ownerID).
		Int("skip", skip).
		Int("limit", limit).
		String("first_name", filter.FirstName).
		String("last_name", filter.LastName).
		String("email", filter.Email).
		Log()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	query := r.owned(ctx, ownerID)

	if filter.FirstName != "" {
		query = query.Where("first_name ILIKE ?", likePattern(filter.FirstName))
	}
	if filter.LastName != "" {
		query = query.Where("last_name ILIKE ?", likePattern(filter.LastName))
	}
	if filter.Email != "" {
		query = query.Where("email ILIKE ?", likePattern(filter.Email))
	}

	var contacts []model.Contact
	if err := query.Order("id").Offset(skip).Limit(limit).Find(&contacts).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list contacts").
			Uint("owner_id", ownerID).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, err
	}

	logger.DebugWithContext(ctx, "Contacts listed").
		Int("count", len(contacts)).
		Duration(time.Since(start)).
		Log()

	return contacts, nil
}

// ListAllByOwner returns every contact of the owner, for the birthday scan.
func (r *ContactRepository) ListAllByOwner(ctx context.Context, ownerID uint) ([]model.Contact, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ListAllByOwner")

	var contacts []model.Contact
	if err := r.owned(ctx, ownerID).Order("id").Find(&contacts).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to load contacts").
			Uint("owner_id", ownerID).
			Err(err).
			Log()
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) Get(ctx context.Context, ownerID, id uint) (*model.Contact, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "GetContact")

	var contact model.Contact
	if err := r.owned(ctx, ownerID).Where("id = ?", id).First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "CreateContact")

	start := time.Now()
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(contact).Error; err != nil {
		logger.WarnWithContext(ctx, "Failed to create contact").
			Uint("owner_id", contact.OwnerID).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Contact created").
		Uint("contact_id", contact.ID).
		Uint("owner_id", contact.OwnerID).
		Duration(time.Since(start)).
		Log()
	return nil
}

// Update applies changes to one owned contact and returns the stored row.
func (r *ContactRepository) Update(ctx context.Context, ownerID, id uint, changes map[string]interface{}) (*model.Contact, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "UpdateContact")

	var contact model.Contact
	result := r.db.WithContext(ctx).
		Model(&contact).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(changes)

	if result.Error != nil {
		logger.WarnWithContext(ctx, "Failed to update contact").
			Uint("contact_id", id).
			Err(result.Error).
			Log()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "Contact updated").
		Uint("contact_id", id).
		Int("fields", len(changes)).
		Log()
	return &contact, nil
}

// Delete removes one owned contact and returns it as it was.
func (r *ContactRepository) Delete(ctx context.Context, ownerID, id uint) (*model.Contact, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "DeleteContact")

	var contact model.Contact
	result := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&contact)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete contact").
			Uint("contact_id", id).
			Err(result.Error).
			Log()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "Contact deleted").
		Uint("contact_id", id).
		Log()
	return &contact, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
