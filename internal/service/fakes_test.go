package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeUserStore struct {
	mu       sync.Mutex
	nextID   uint
	users    map[string]*model.User
	getCalls int
	err      error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserStore) UpdateRefreshToken(_ context.Context, id uint, token *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			if token == nil {
				u.RefreshToken = nil
			} else {
				t := *token
				u.RefreshToken = &t
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeUserStore) Confirm(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Confirmed = true
	return nil
}

func (f *fakeUserStore) UpdateAvatar(_ context.Context, email, url string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u.Avatar = &url
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) stored(email string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[email]
}

func (f *fakeUserStore) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type fakeContactStore struct {
	mu       sync.Mutex
	nextID   uint
	contacts map[uint]*model.Contact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[uint]*model.Contact)}
}

func (f *fakeContactStore) sorted(ownerID uint) []model.Contact {
	var out []model.Contact
	for _, c := range f.contacts {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeContactStore) List(_ context.Context, ownerID uint, filter dto.ContactFilter, skip, limit int) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matches := func(field, term string) bool {
		return term == "" || strings.Contains(strings.ToLower(field), strings.ToLower(term))
	}

	var out []model.Contact
	for _, c := range f.sorted(ownerID) {
		if matches(c.FirstName, filter.FirstName) && matches(c.LastName, filter.LastName) && matches(c.Email, filter.Email) {
			out = append(out, c)
		}
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContactStore) ListAllByOwner(_ context.Context, ownerID uint) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(ownerID), nil
}

func (f *fakeContactStore) Get(_ context.Context, ownerID, id uint) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactStore) emailTaken(email string, except uint) bool {
	for _, c := range f.contacts {
		if c.Email == email && c.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeContactStore) Create(_ context.Context, contact *model.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailTaken(contact.Email, 0) {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	contact.ID = f.nextID
	cp := *contact
	f.contacts[contact.ID] = &cp
	return nil
}

func (f *fakeContactStore) Update(_ context.Context, ownerID, id uint, changes map[string]interface{}) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	if email, ok := changes["email"].(string); ok && f.emailTaken(email, id) {
		return nil, gorm.ErrDuplicatedKey
	}

	for k, v := range changes {
		switch k {
		case "first_name":
			c.FirstName = v.(string)
		case "last_name":
			c.LastName = v.(string)
		case "email":
			c.Email = v.(string)
		case "phone":
			c.Phone = v.(string)
		case "birthday":
			c.Birthday = v.(datatypes.Date)
		case "additional_info":
			c.AdditionalInfo = v.(*string)
		default:
			return nil, errors.New("unknown column " + k)
		}
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactStore) Delete(_ context.Context, ownerID, id uint) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	delete(f.contacts, id)
	return c, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []dto.ConfirmationMailJob
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job dto.ConfirmationMailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

func (f *fakeDispatcher) sent() []dto.ConfirmationMailJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.ConfirmationMailJob(nil), f.jobs...)
}

type fakeAvatars struct {
	url string
	err error
}

func (f fakeAvatars) AvatarURL(context.Context, string) (string, error) {
	return f.url, f.err
}

type fakeStorage struct {
	key         string
	body        string
	contentType string
	err         error
}

func (f *fakeStorage) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	f.key, f.body, f.contentType = key, string(b), contentType
	return "https://cdn.example.com/" + key, nil
}

// failingSessionStore fails every call.
type failingSessionStore struct{}

func (failingSessionStore) GetJSON(context.Context, string, interface{}) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingSessionStore) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func (failingSessionStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}
