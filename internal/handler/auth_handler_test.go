package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/middleware"
	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type fakeAuthSrv struct {
	loginErr   error
	lastLogin  models.LoginRequest
	resetToken string
	checkErr   error
}

func (f *fakeAuthSrv) RegisterStudent(_ context.Context, req models.RegisterStudentRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "student-token", ExpiresIn: 900, User: models.UserInfo{ID: 2, Email: req.Email, Role: models.RoleStudent}}, nil
}

func (f *fakeAuthSrv) RegisterTeacher(context.Context, models.RegisterTeacherRequest) (*models.LoginResponse, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not listed in the faculty registry")
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 900, User: models.UserInfo{ID: 1, Email: req.Email, Role: models.RoleTeacher}}, nil
}

func (f *fakeAuthSrv) Me(_ context.Context, actor models.Actor) (*models.UserInfo, error) {
	return &models.UserInfo{ID: actor.ID, Role: actor.Role}, nil
}

func (f *fakeAuthSrv) ChangePassword(context.Context, models.Actor, models.ChangePasswordRequest) error {
	return nil
}

func (f *fakeAuthSrv) ForgotPassword(context.Context, models.ForgotPasswordRequest) (string, error) {
	return f.resetToken, nil
}

func (f *fakeAuthSrv) CheckResetToken(context.Context, string) error {
	return f.checkErr
}

func (f *fakeAuthSrv) ResetPassword(context.Context, models.ResetPasswordRequest) error {
	return nil
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, ck := range cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestAuthHandlerLoginSetsCookie(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv, false)
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"grace@example.edu","password":"Password123!"}`, nil)
	c.Request.Header.Set("User-Agent", "kanvas-test")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kanvas-test", srv.lastLogin.UserAgent)
	ck := findCookie(rec.Result().Cookies(), middleware.AccessCookie)
	require.NotNil(t, ck)
	assert.Equal(t, "token", ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, 900, ck.MaxAge)
	assert.Contains(t, rec.Body.String(), `"access_token":"token"`)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials}, false)
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"grace@example.edu","password":"nope"}`, nil)

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, findCookie(rec.Result().Cookies(), middleware.AccessCookie))
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{}, false)
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":`, nil)

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerRegisterTeacherForbidden(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{}, false)
	c, rec := newTestContext(http.MethodPost, "/auth/register/teacher", `{"email":"x@example.edu","password":"Password123!","teacher_number":"T-9"}`, nil)

	h.RegisterTeacher(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not listed in the faculty registry", decodeEnvelope(t, rec).Error.Message)
}

func TestAuthHandlerLogoutExpiresCookie(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{}, true)
	c, rec := newTestContext(http.MethodPost, "/auth/logout", "", nil)

	h.Logout(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	ck := findCookie(rec.Result().Cookies(), middleware.AccessCookie)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.True(t, ck.Secure)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{}, false)
	c, rec := newTestContext(http.MethodGet, "/auth/me", "", nil)

	h.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/auth/me", "", claimsFor(7, models.RoleStudent))
	h.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":7`)
}

func TestAuthHandlerForgotPasswordExposesTokenOutsideProduction(t *testing.T) {
	srv := &fakeAuthSrv{resetToken: "reset-abc"}

	c, rec := newTestContext(http.MethodPost, "/auth/forgot-password", `{"email":"grace@example.edu"}`, nil)
	NewAuthHandler(srv, false).ForgotPassword(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset-abc")

	c, rec = newTestContext(http.MethodPost, "/auth/forgot-password", `{"email":"grace@example.edu"}`, nil)
	NewAuthHandler(srv, true).ForgotPassword(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), "reset-abc")
}
