package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	"github.com/Payphone-Digital/contacts-api/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.UseJSONFieldNames()
}

var testUser = &dto.SessionSnapshot{ID: 3, Username: "annie", Email: "ann@example.com", Confirmed: true}

// withUser stands in for RequireAuth.
func withUser(c *gin.Context) {
	c.Set(constants.GinKeyCurrentUser, testUser)
	c.Set(constants.GinKeyUserID, testUser.ID)
}

type fakeAuth struct {
	signupHost string
	loginEmail string
	refreshed  string
	loggedOut  *dto.SessionSnapshot
	err        error
}

func (f *fakeAuth) Signup(_ context.Context, req dto.SignupRequest, host string) (*dto.UserResponse, error) {
	f.signupHost = host
	if f.err != nil {
		return nil, f.err
	}
	return &dto.UserResponse{ID: 1, Username: req.Username, Email: req.Email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*dto.TokenResponse, error) {
	f.loginEmail = email
	if f.err != nil {
		return nil, f.err
	}
	return &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", TokenType: constants.TokenType}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*dto.TokenResponse, error) {
	f.refreshed = token
	if f.err != nil {
		return nil, f.err
	}
	return &dto.TokenResponse{AccessToken: "a2", RefreshToken: "r2", TokenType: constants.TokenType}, nil
}

func (f *fakeAuth) ConfirmEmail(_ context.Context, token string) (string, error) {
	if token != "good" {
		return "", apperrors.ErrBadEmailToken
	}
	return constants.MsgEmailConfirmed, nil
}

func (f *fakeAuth) RequestEmail(context.Context, string, string) (string, error) {
	return constants.MsgCheckEmail, nil
}

func (f *fakeAuth) Logout(_ context.Context, session *dto.SessionSnapshot) error {
	f.loggedOut = session
	return f.err
}

type fakeContacts struct {
	lastFilter dto.ContactFilter
	lastPage   constants.PaginationParams
	lastOwner  uint
	lastUpdate dto.ContactUpdateRequest
	err        error
}

func (f *fakeContacts) List(_ context.Context, owner uint, filter dto.ContactFilter, page constants.PaginationParams) ([]dto.ContactResponse, error) {
	f.lastOwner, f.lastFilter, f.lastPage = owner, filter, page
	return []dto.ContactResponse{{ID: 1, FirstName: "Bob", OwnerID: owner}}, f.err
}

func (f *fakeContacts) Get(_ context.Context, owner, id uint) (*dto.ContactResponse, error) {
	f.lastOwner = owner
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ContactResponse{ID: id, OwnerID: owner}, nil
}

func (f *fakeContacts) Create(_ context.Context, owner uint, req dto.ContactRequest) (*dto.ContactResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ContactResponse{ID: 9, FirstName: req.FirstName, Email: req.Email, Birthday: req.Birthday, OwnerID: owner}, nil
}

func (f *fakeContacts) Update(_ context.Context, owner, id uint, req dto.ContactUpdateRequest) (*dto.ContactResponse, error) {
	f.lastUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ContactResponse{ID: id, OwnerID: owner}, nil
}

func (f *fakeContacts) Delete(_ context.Context, owner, id uint) (*dto.ContactResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ContactResponse{ID: id, OwnerID: owner}, nil
}

func (f *fakeContacts) UpcomingBirthdays(context.Context, uint) ([]dto.ContactResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []dto.ContactResponse{}, nil
}

type fakeUsers struct {
	body        []byte
	contentType string
	err         error
}

func (f *fakeUsers) Me(_ context.Context, s *dto.SessionSnapshot) dto.UserResponse { return s.ToResponse() }

func (f *fakeUsers) UpdateAvatar(_ context.Context, s *dto.SessionSnapshot, body io.Reader, _ int64, contentType string) (*dto.UserResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.body, _ = io.ReadAll(body)
	f.contentType = contentType
	resp := s.ToResponse()
	avatar := "https://cdn.example.com/avatars/3"
	resp.Avatar = &avatar
	return &resp, nil
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func authRouter(auth *fakeAuth, baseURL string) *gin.Engine {
	h := NewAuthHandler(auth, baseURL)
	r := gin.New()
	r.POST("/api/auth/signup", h.Signup)
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/auth/refresh_token", h.RefreshToken)
	r.GET("/api/auth/confirmed_email/:token", h.ConfirmEmail)
	r.POST("/api/auth/request_email", h.RequestEmail)
	r.POST("/api/auth/logout", withUser, h.Logout)
	return r
}

func TestAuthHandler_Signup(t *testing.T) {
	auth := &fakeAuth{}
	r := authRouter(auth, "")

	w := doJSON(r, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "annie", "email": "ann@example.com", "password": "secret1",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, constants.MsgUserCreated, body["detail"])
	assert.Equal(t, "annie", body["user"].(map[string]any)["username"])
	assert.Equal(t, "http://example.com/", auth.signupHost)
}

func TestAuthHandler_SignupUsesConfiguredBaseURL(t *testing.T) {
	auth := &fakeAuth{}
	r := authRouter(auth, "https://contacts.example.org")

	doJSON(r, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "annie", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, "https://contacts.example.org/", auth.signupHost)
}

func TestAuthHandler_SignupValidation(t *testing.T) {
	r := authRouter(&fakeAuth{}, "")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "ann", "email": "ann@example.com", "password": "secret1"}},
		{"long password", map[string]string{"username": "annie", "email": "ann@example.com", "password": "01234567890"}},
		{"bad email", map[string]string{"username": "annie", "email": "nope", "password": "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/auth/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, constants.MsgValidationFailed, decode(t, w)["message"])
		})
	}
}

func TestAuthHandler_SignupConflict(t *testing.T) {
	r := authRouter(&fakeAuth{err: apperrors.ErrAccountExists}, "")

	w := doJSON(r, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "annie", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"message":"Account already exists"}`, w.Body.String())
}

func TestAuthHandler_LoginForm(t *testing.T) {
	auth := &fakeAuth{}
	r := authRouter(auth, "")

	form := url.Values{"username": {"ann@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeForm)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access_token":"a","refresh_token":"r","token_type":"bearer"}`, w.Body.String())
	assert.Equal(t, "ann@example.com", auth.loginEmail)
}

func TestAuthHandler_LoginFailure(t *testing.T) {
	r := authRouter(&fakeAuth{err: apperrors.ErrInvalidPass}, "")

	w := doJSON(r, http.MethodPost, "/api/auth/login", map[string]string{"username": "ann@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get(constants.HeaderWWWAuthenticate))
	assert.JSONEq(t, `{"message":"Invalid password"}`, w.Body.String())
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	auth := &fakeAuth{}
	r := authRouter(auth, "")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/refresh_token", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer old-refresh")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old-refresh", auth.refreshed)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/refresh_token", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_RefreshWrongScope(t *testing.T) {
	r := authRouter(&fakeAuth{err: apperrors.ErrWrongScope}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/refresh_token", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer access")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Invalid scope for token"}`, w.Body.String())
}

func TestAuthHandler_ConfirmEmail(t *testing.T) {
	r := authRouter(&fakeAuth{}, "")

	w := doJSON(r, http.MethodGet, "/api/auth/confirmed_email/good", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Email confirmed"}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/auth/confirmed_email/bad", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAuthHandler_RequestEmailAndLogout(t *testing.T) {
	auth := &fakeAuth{}
	r := authRouter(auth, "")

	w := doJSON(r, http.MethodPost, "/api/auth/request_email", map[string]string{"email": "ann@example.com"})
	assert.JSONEq(t, `{"message":"Check your email for confirmation."}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testUser, auth.loggedOut)
}

func contactRouter(contacts *fakeContacts) *gin.Engine {
	h := NewContactHandler(contacts)
	r := gin.New()
	g := r.Group("/api/contacts", withUser)
	g.GET("", h.List)
	g.GET("/birthdays", h.Birthdays)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func TestContactHandler_ListParsesQuery(t *testing.T) {
	contacts := &fakeContacts{}
	r := contactRouter(contacts)

	w := doJSON(r, http.MethodGet, "/api/contacts?skip=5&limit=500&first_name=Bo", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testUser.ID, contacts.lastOwner)
	assert.Equal(t, "Bo", contacts.lastFilter.FirstName)
	assert.Equal(t, constants.PaginationParams{Skip: 5, Limit: constants.MaxLimit}, contacts.lastPage)
}

func TestContactHandler_Create(t *testing.T) {
	r := contactRouter(&fakeContacts{})

	w := doJSON(r, http.MethodPost, "/api/contacts", map[string]string{
		"first_name": "Bob", "last_name": "Lee", "email": "bob@example.com",
		"phone": "+100", "birthday": "1990-06-12",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1990-06-12", decode(t, w)["birthday"])

	w = doJSON(r, http.MethodPost, "/api/contacts", map[string]string{
		"first_name": "Bob", "last_name": "Lee", "email": "bob@example.com",
		"phone": "+100", "birthday": "12/06/1990",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContactHandler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{"not found with id", apperrors.WithMessage(apperrors.ErrContactNotFound, "Contact 4 not found"), http.MethodGet, "/api/contacts/4", nil, http.StatusNotFound, "Contact 4 not found"},
		{"update not found", apperrors.ErrContactNotFound, http.MethodPut, "/api/contacts/4", map[string]string{"phone": "1"}, http.StatusNotFound, "Contact not found"},
		{"duplicate email", apperrors.ErrContactEmailExists, http.MethodPut, "/api/contacts/4", map[string]string{"email": "x@example.com"}, http.StatusConflict, "Contact with this email already exists"},
		{"no birthdays", apperrors.ErrNoUpcomingBirthday, http.MethodGet, "/api/contacts/birthdays", nil, http.StatusNotFound, "No upcoming birthdays"},
		{"bad id", nil, http.MethodDelete, "/api/contacts/abc", nil, http.StatusBadRequest, constants.MsgBadRequest},
		{"internal", apperrors.WrapError(apperrors.ErrInternal, errors.New("pq: boom")), http.MethodDelete, "/api/contacts/4", nil, http.StatusInternalServerError, constants.MsgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := contactRouter(&fakeContacts{err: tt.err})
			w := doJSON(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["message"])
		})
	}
}

func TestContactHandler_UpdateIsPartial(t *testing.T) {
	contacts := &fakeContacts{}
	r := contactRouter(contacts)

	w := doJSON(r, http.MethodPut, "/api/contacts/2", map[string]string{"phone": "+200"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, contacts.lastUpdate.Phone)
	assert.Equal(t, "+200", *contacts.lastUpdate.Phone)
	assert.Nil(t, contacts.lastUpdate.Email)
}

func avatarRequest(t *testing.T, contentType string, size int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="a.png"`)
	h.Set(constants.HeaderContentType, contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{1}, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/users/avatar", &buf)
	req.Header.Set(constants.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestUserHandler_Avatar(t *testing.T) {
	users := &fakeUsers{}
	h := NewUserHandler(users)
	r := gin.New()
	r.GET("/api/users/me", withUser, h.Me)
	r.PATCH("/api/users/avatar", withUser, h.UpdateAvatar)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, "image/png", 128))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, users.body, 128)
	assert.Equal(t, "image/png", users.contentType)
	assert.Equal(t, "https://cdn.example.com/avatars/3", decode(t, w)["avatar"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, "application/pdf", 16))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, "image/png", constants.MaxAvatarBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = doJSON(r, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, "ann@example.com", decode(t, w)["email"])
}

func TestUserHandler_AvatarStorageDown(t *testing.T) {
	h := NewUserHandler(&fakeUsers{err: apperrors.ErrServiceUnavailable})
	r := gin.New()
	r.PATCH("/api/users/avatar", withUser, h.UpdateAvatar)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, "image/jpeg", 8))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler().
		AddCheck("database", true, func(context.Context) error { return nil }).
		AddCheck("redis", false, func(context.Context) error { return fmt.Errorf("refused") }).
		AddCheck("broker", false, nil)

	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/api/health", h.HealthCheck)
	r.GET("/api/health/live", h.Live)

	w := doJSON(r, http.MethodGet, "/", nil)
	assert.JSONEq(t, `{"message":"Welcome to the contacts API"}`, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["redis"].Status)
	assert.Equal(t, "disabled", resp.Checks["broker"].Status)

	h.AddCheck("storage", true, func(context.Context) error { return errors.New("timeout") })
	w = doJSON(r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(r, http.MethodGet, "/api/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
