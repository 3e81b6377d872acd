package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/financial-coach-api/internal/dto"
	"github.com/noah-isme/financial-coach-api/internal/middleware"
	"github.com/noah-isme/financial-coach-api/internal/models"
	"github.com/noah-isme/financial-coach-api/internal/service"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
	"github.com/noah-isme/financial-coach-api/pkg/export"
)

type fakeProfileService struct {
	profile    *dto.UserProfileResponse
	exists     bool
	err        error
	lastUserID string
	lastReq    dto.UserProfileRequest
}

func (f *fakeProfileService) Get(_ context.Context, userID string) (*dto.UserProfileResponse, error) {
	f.lastUserID = userID
	return f.profile, f.err
}

func (f *fakeProfileService) Exists(_ context.Context, userID string) (bool, error) {
	f.lastUserID = userID
	return f.exists, f.err
}

func (f *fakeProfileService) Create(_ context.Context, userID string, req dto.UserProfileRequest) (*dto.UserProfileResponse, error) {
	f.lastUserID, f.lastReq = userID, req
	return f.profile, f.err
}

func (f *fakeProfileService) Update(_ context.Context, userID string, req dto.UserProfileRequest) (*dto.UserProfileResponse, error) {
	f.lastUserID, f.lastReq = userID, req
	return f.profile, f.err
}

func (f *fakeProfileService) Delete(_ context.Context, userID string) error {
	f.lastUserID = userID
	return f.err
}

type fakeExporter struct {
	file       *service.ProfileExport
	err        error
	lastFormat export.Format
}

func (f *fakeExporter) Export(_ context.Context, _ string, format export.Format) (*service.ProfileExport, error) {
	f.lastFormat = format
	return f.file, f.err
}

func authedContext(rec *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})
	return c
}

func TestProfileHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeProfileService{profile: &dto.UserProfileResponse{UserID: "user-1", Email: "ana@example.com"}}
	handler := NewProfileHandler(svc, &fakeExporter{})

	rec := httptest.NewRecorder()
	handler.Get(authedContext(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", svc.lastUserID)
	assert.Equal(t, "ana@example.com", decodeEnvelope(t, rec).Data["email"])
}

func TestProfileHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(&fakeProfileService{err: appErrors.Clone(appErrors.ErrNotFound, "profile not found")}, &fakeExporter{})

	rec := httptest.NewRecorder()
	handler.Get(authedContext(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileHandlerExists(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(&fakeProfileService{exists: true}, &fakeExporter{})

	rec := httptest.NewRecorder()
	handler.Exists(authedContext(rec, httptest.NewRequest(http.MethodGet, "/api/profile/exists", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeEnvelope(t, rec).Data["exists"])
}

func TestProfileHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeProfileService{profile: &dto.UserProfileResponse{UserID: "user-1"}}
	handler := NewProfileHandler(svc, &fakeExporter{})

	rec := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/profile", map[string]interface{}{"fullName": "Ana", "monthlyIncome": 3000})
	handler.Create(authedContext(rec, req))

	assert.Equal(t, http.StatusCreated, rec.Code)
	if assert.NotNil(t, svc.lastReq.FullName) {
		assert.Equal(t, "Ana", *svc.lastReq.FullName)
	}
	assert.Nil(t, svc.lastReq.Occupation)
}

func TestProfileHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(&fakeProfileService{err: appErrors.Clone(appErrors.ErrConflict, "profile already exists")}, &fakeExporter{})

	rec := httptest.NewRecorder()
	handler.Create(authedContext(rec, jsonRequest(http.MethodPost, "/api/profile", map[string]interface{}{})))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProfileHandlerUpdateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(&fakeProfileService{}, &fakeExporter{})

	rec := httptest.NewRecorder()
	handler.Update(authedContext(rec, httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString("[1,2"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeProfileService{}
	handler := NewProfileHandler(svc, &fakeExporter{})

	rec := httptest.NewRecorder()
	c := authedContext(rec, httptest.NewRequest(http.MethodDelete, "/api/profile", nil))
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", svc.lastUserID)
}

func TestProfileHandlerExportWritesAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &fakeExporter{file: &service.ProfileExport{
		Filename:    "profile-user-1.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
	}}
	handler := NewProfileHandler(&fakeProfileService{}, exporter)

	rec := httptest.NewRecorder()
	handler.Export(authedContext(rec, httptest.NewRequest(http.MethodGet, "/api/profile/export?format=pdf", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.Format("pdf"), exporter.lastFormat)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="profile-user-1.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String())
}

func TestProfileHandlerExportDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &fakeExporter{file: &service.ProfileExport{Filename: "profile-user-1.csv", ContentType: "text/csv"}}
	handler := NewProfileHandler(&fakeProfileService{}, exporter)

	rec := httptest.NewRecorder()
	handler.Export(authedContext(rec, httptest.NewRequest(http.MethodGet, "/api/profile/export", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, exporter.lastFormat)
}
