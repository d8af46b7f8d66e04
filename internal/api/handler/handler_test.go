package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/dto"
	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/jwt"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock FillCodeService ──

type mockFillCodeService struct {
	access      *model.AccessSession
	err         error
	validatedID string
	cleared     bool
}

func (m *mockFillCodeService) Validate(_ context.Context, sessionID, code, locale string) (*model.AccessSession, error) {
	m.validatedID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return &model.AccessSession{Code: code, Locale: locale}, nil
}
func (m *mockFillCodeService) Current(_ context.Context, _ string) (*model.AccessSession, error) {
	return m.access, m.err
}
func (m *mockFillCodeService) Clear(_ context.Context, _ string) error {
	m.cleared = true
	return nil
}

// ── Mock FormService ──

type mockFormService struct {
	formResult   *dto.FormResponse
	submitResult *dto.SubmitResponse
	errs         *form.ErrorTree
	err          error
	lastPath     string
	lastIndex    int
	lastFile     service.UploadFile
	lastDocType  string
	discarded    bool
}

func (m *mockFormService) Start(_ context.Context, _ string, _ bool) (*dto.FormResponse, error) {
	return m.formResult, m.err
}
func (m *mockFormService) Get(_ context.Context, _ string) (*dto.FormResponse, error) {
	return m.formResult, m.err
}
func (m *mockFormService) SetField(_ context.Context, _, path string, _ interface{}) (*dto.FormResponse, error) {
	m.lastPath = path
	return m.formResult, m.err
}
func (m *mockFormService) AppendMember(_ context.Context, _ string) (int, error) { return 2, m.err }
func (m *mockFormService) RemoveMember(_ context.Context, _ string, index int) error {
	m.lastIndex = index
	return m.err
}
func (m *mockFormService) AppendBudgetItem(_ context.Context, _ string) (int, error) { return 7, m.err }
func (m *mockFormService) RemoveBudgetItem(_ context.Context, _ string, index int) error {
	m.lastIndex = index
	return m.err
}
func (m *mockFormService) Next(_ context.Context, _ string) (*dto.FormResponse, *form.ErrorTree, error) {
	return m.formResult, m.errs, m.err
}
func (m *mockFormService) Prev(_ context.Context, _ string) (*dto.FormResponse, error) {
	return m.formResult, m.err
}
func (m *mockFormService) GoTo(_ context.Context, _ string, index int) (*dto.FormResponse, *form.ErrorTree, error) {
	m.lastIndex = index
	return m.formResult, m.errs, m.err
}
func (m *mockFormService) Submit(_ context.Context, _ string) (*dto.SubmitResponse, *form.ErrorTree, error) {
	return m.submitResult, m.errs, m.err
}
func (m *mockFormService) UploadResume(_ context.Context, _ string, index int, file service.UploadFile) (*dto.ResumeUploadResponse, error) {
	m.lastIndex = index
	m.lastFile = file
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ResumeUploadResponse{MemberIndex: index, ResumeRef: "resumes/" + file.Name}, nil
}
func (m *mockFormService) ParseDocument(_ context.Context, _ string, file service.UploadFile, docType, _ string) (*dto.ParseDocumentResponse, error) {
	m.lastFile = file
	m.lastDocType = docType
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ParseDocumentResponse{Field: "background", Content: "parsed"}, nil
}
func (m *mockFormService) Snapshot(_ context.Context, _ string) (*model.ApplicationDraft, form.State, error) {
	if m.err != nil {
		return nil, form.State{}, m.err
	}
	return form.NewDraft(), form.State{ApplicationNo: "APP-1"}, nil
}
func (m *mockFormService) Discard(_ context.Context, _ string) error {
	m.discarded = true
	return nil
}
func (m *mockFormService) Close() {}

// ── Mock OptionService ──

type mockOptionService struct {
	result     *dto.OptionsResponse
	err        error
	lastAccess *model.AccessSession
	lastLocale string
}

func (m *mockOptionService) List(_ context.Context, access *model.AccessSession, kind, locale string) (*dto.OptionsResponse, error) {
	m.lastAccess = access
	m.lastLocale = locale
	if m.err != nil {
		return nil, m.err
	}
	return &dto.OptionsResponse{Type: kind, Locale: locale}, nil
}
func (m *mockOptionService) Warm(_ context.Context, _ *model.AccessSession) {}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) BudgetWorkbook(_ *model.ApplicationDraft, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) MilestoneCalendar(_ *model.ApplicationDraft, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

// withSession 模拟会话中间件
func withSession(c *gin.Context) {
	c.Set(ctxSessionID, "test-session")
	c.Set(ctxLocale, "zh")
	c.Next()
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{SessionSecret: "handler-test-secret", SessionTTL: time.Hour})
}

func basicInfoErrors() *form.ErrorTree {
	return form.NewValidator(options.Default()).ValidateSection(form.StepBasicInfo, form.NewDraft())
}

// ═══════════════════════════════════════════════════════════
// FillCodeHandler Tests
// ═══════════════════════════════════════════════════════════

func TestFillCodeHandler_Validate_Success(t *testing.T) {
	fc := &mockFillCodeService{}
	jwtMgr := newTestJWT()
	h := NewFillCodeHandler(fc, &mockFormService{}, &mockOptionService{}, jwtMgr)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/fill-code/validate", jsonBody(dto.ValidateFillCodeRequest{
		Code:   "FC-1234-5678",
		Locale: "en",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/fill-code/validate", h.Validate)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data dto.FillCodeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FC-1...5678", body.Data.MaskedCode)
	assert.Equal(t, 3600, body.Data.ExpiresIn)

	claims, err := jwtMgr.ParseToken(body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, fc.validatedID, claims.SessionID, "令牌须绑定新建的会话")
	assert.Equal(t, "en", claims.Locale)
}

func TestFillCodeHandler_Validate_ReusesSession(t *testing.T) {
	fc := &mockFillCodeService{}
	h := NewFillCodeHandler(fc, &mockFormService{}, &mockOptionService{}, newTestJWT())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/fill-code/validate", jsonBody(dto.ValidateFillCodeRequest{Code: "nocode"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/fill-code/validate", withSession, h.Validate)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if fc.validatedID != "test-session" {
		t.Errorf("携带会话时应沿用原会话，实际=%s", fc.validatedID)
	}
}

func TestFillCodeHandler_Validate_BadJSON(t *testing.T) {
	h := NewFillCodeHandler(&mockFillCodeService{}, &mockFormService{}, &mockOptionService{}, newTestJWT())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/fill-code/validate", strings.NewReader(`{"code":"x","locale":"fr"}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/fill-code/validate", h.Validate)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestFillCodeHandler_Validate_Invalid(t *testing.T) {
	fc := &mockFillCodeService{err: apperrors.Credential("填写码已过期", nil)}
	h := NewFillCodeHandler(fc, &mockFormService{}, &mockOptionService{}, newTestJWT())

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/fill-code/validate", jsonBody(dto.ValidateFillCodeRequest{Code: "FC-OLD"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/fill-code/validate", h.Validate)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Message != "填写码已过期" {
		t.Errorf("期望后端文案，实际=%s", resp.Message)
	}
	if resp.Code != apperrors.CodeCredential {
		t.Errorf("期望错误码 %d，实际 %d", apperrors.CodeCredential, resp.Code)
	}
}

func TestFillCodeHandler_Get_Masked(t *testing.T) {
	expires := "2030-01-01T00:00:00Z"
	fc := &mockFillCodeService{access: &model.AccessSession{Code: "FC-1234-5678", ExpiresAt: &expires}}
	h := NewFillCodeHandler(fc, &mockFormService{}, &mockOptionService{}, newTestJWT())

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/fill-code", withSession, h.Get)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/fill-code", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "FC-1234-5678", "响应不得包含完整填写码")
	assert.Contains(t, w.Body.String(), "FC-1...5678")
}

func TestFillCodeHandler_Get_Unauthenticated(t *testing.T) {
	h := NewFillCodeHandler(&mockFillCodeService{}, &mockFormService{}, &mockOptionService{}, newTestJWT())

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/fill-code", h.Get)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/fill-code", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
}

func TestFillCodeHandler_Delete(t *testing.T) {
	fc := &mockFillCodeService{}
	fs := &mockFormService{}
	h := NewFillCodeHandler(fc, fs, &mockOptionService{}, newTestJWT())

	_, _, w := setupGin()
	r := gin.New()
	r.DELETE("/fill-code", withSession, h.Delete)
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/fill-code", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, fc.cleared, "应清除填写码")
	assert.True(t, fs.discarded, "应丢弃草稿")
}

// ═══════════════════════════════════════════════════════════
// FormHandler Tests
// ═══════════════════════════════════════════════════════════

func TestFormHandler_Start(t *testing.T) {
	fs := &mockFormService{formResult: &dto.FormResponse{Draft: form.NewDraft()}}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form", jsonBody(dto.StartFormRequest{Test: true}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/form", withSession, h.Start)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("期望 201，实际 %d", w.Code)
	}
}

func TestFormHandler_SetField_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"未知路径", fmt.Errorf("%w: %q", form.ErrUnknownPath, "foo"), http.StatusBadRequest},
		{"下标越界", form.ErrOutOfRange, http.StatusBadRequest},
		{"只读字段", form.ErrFixedField, http.StatusBadRequest},
		{"类型不匹配", form.ErrInvalidValue, http.StatusBadRequest},
		{"提交中", form.ErrBusy, http.StatusConflict},
		{"已提交", form.ErrAlreadySubmitted, http.StatusConflict},
		{"未登录", apperrors.Credential("请先输入填写码", nil), http.StatusUnauthorized},
		{"未知错误", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFormHandler(&mockFormService{err: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("PATCH", "/form/fields", jsonBody(dto.SetFieldRequest{Path: "projectName", Value: "x"}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.PATCH("/form/fields", withSession, h.SetField)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("期望 %d，实际 %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestFormHandler_SetField_MissingPath(t *testing.T) {
	fs := &mockFormService{}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	req := httptest.NewRequest("PATCH", "/form/fields", strings.NewReader(`{"value":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PATCH("/form/fields", withSession, h.SetField)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
	if fs.lastPath != "" {
		t.Error("参数校验失败时不应调用 Service")
	}
}

func TestFormHandler_RemoveMember_BadIndex(t *testing.T) {
	h := NewFormHandler(&mockFormService{})

	_, _, w := setupGin()
	r := gin.New()
	r.DELETE("/form/members/:index", withSession, h.RemoveMember)
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/form/members/abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestFormHandler_RemoveBudgetItem(t *testing.T) {
	fs := &mockFormService{}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	r := gin.New()
	r.DELETE("/form/budget-items/:index", withSession, h.RemoveBudgetItem)
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/form/budget-items/3", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, fs.lastIndex)
}

func TestFormHandler_Next_Invalid(t *testing.T) {
	fs := &mockFormService{
		formResult: &dto.FormResponse{State: form.State{CurrentIndex: form.StepBasicInfo}},
		errs:       basicInfoErrors(),
	}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	r := gin.New()
	r.POST("/form/next", withSession, h.Next)
	r.ServeHTTP(w, httptest.NewRequest("POST", "/form/next", nil))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("期望 422，实际 %d", w.Code)
	}

	var body struct {
		Code int `json:"code"`
		Data struct {
			ErrorCount   int    `json:"error_count"`
			FirstInvalid string `json:"first_invalid"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeValidation, body.Code)
	assert.Greater(t, body.Data.ErrorCount, 0)
	assert.NotEmpty(t, body.Data.FirstInvalid)
}

func TestFormHandler_Next_Success(t *testing.T) {
	fs := &mockFormService{formResult: &dto.FormResponse{State: form.State{CurrentIndex: form.StepTeam}}}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	r := gin.New()
	r.POST("/form/next", withSession, h.Next)
	r.ServeHTTP(w, httptest.NewRequest("POST", "/form/next", nil))

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
}

func TestFormHandler_GoTo_RequiresIndex(t *testing.T) {
	h := NewFormHandler(&mockFormService{})

	for _, body := range []string{`{}`, `{"index":5}`, `{"index":-1}`} {
		_, _, w := setupGin()
		req := httptest.NewRequest("POST", "/form/goto", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		r := gin.New()
		r.POST("/form/goto", withSession, h.GoTo)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: 期望 400，实际 %d", body, w.Code)
		}
	}
}

func TestFormHandler_GoTo_Zero(t *testing.T) {
	fs := &mockFormService{formResult: &dto.FormResponse{}}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form/goto", strings.NewReader(`{"index":0}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/form/goto", withSession, h.GoTo)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, fs.lastIndex)
}

func TestFormHandler_Submit(t *testing.T) {
	fs := &mockFormService{submitResult: &dto.SubmitResponse{ApplicationNo: "APP-2025-000123", Countdown: 10}}
	h := NewFormHandler(fs)

	_, _, w := setupGin()
	r := gin.New()
	r.POST("/form/submit", withSession, h.Submit)
	r.ServeHTTP(w, httptest.NewRequest("POST", "/form/submit", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "APP-2025-000123")
}

func TestFormHandler_Submit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		fs         *mockFormService
		wantStatus int
	}{
		{"校验失败", &mockFormService{submitResult: &dto.SubmitResponse{}, errs: basicInfoErrors()}, http.StatusUnprocessableEntity},
		{"重复提交", &mockFormService{err: service.ErrFormBusy}, http.StatusConflict},
		{"非最后一步", &mockFormService{err: form.ErrNotLastStep}, http.StatusBadRequest},
		{"网络错误", &mockFormService{err: apperrors.Transport("网络错误，请检查网络连接", nil)}, http.StatusBadGateway},
		{"后端拒绝", &mockFormService{err: apperrors.Business(400, 40010, "项目名称重复")}, http.StatusBadRequest},
		{"缺少申请编号", &mockFormService{err: apperrors.Integrity("提交失败")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFormHandler(tt.fs)

			_, _, w := setupGin()
			r := gin.New()
			r.POST("/form/submit", withSession, h.Submit)
			r.ServeHTTP(w, httptest.NewRequest("POST", "/form/submit", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("期望 %d，实际 %d", tt.wantStatus, w.Code)
			}
			if parseResponse(w).Success {
				t.Error("失败响应的 success 应为 false")
			}
		})
	}
}

func TestFormHandler_UploadResume(t *testing.T) {
	fs := &mockFormService{}
	h := NewFormHandler(fs)

	body, ct := multipartBody(t, "cv.pdf", "%PDF-1.7", nil)
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form/members/1/resume", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/form/members/:index/resume", withSession, h.UploadResume)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, fs.lastIndex)
	assert.Equal(t, "cv.pdf", fs.lastFile.Name)
	assert.Equal(t, int64(len("%PDF-1.7")), fs.lastFile.Size)
}

func TestFormHandler_UploadResume_MissingFile(t *testing.T) {
	h := NewFormHandler(&mockFormService{})

	body, ct := multipartBody(t, "", "", map[string]string{"other": "x"})
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form/members/0/resume", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/form/members/:index/resume", withSession, h.UploadResume)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestFormHandler_UploadResume_Rejected(t *testing.T) {
	h := NewFormHandler(&mockFormService{err: apperrors.Validation("仅支持 PDF/DOC/DOCX 格式的文件")})

	body, ct := multipartBody(t, "cv.exe", "MZ", nil)
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form/members/0/resume", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/form/members/:index/resume", withSession, h.UploadResume)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("期望 422，实际 %d", w.Code)
	}
}

func TestFormHandler_ParseDocument(t *testing.T) {
	fs := &mockFormService{}
	h := NewFormHandler(fs)

	body, ct := multipartBody(t, "notes.txt", "hello", map[string]string{"type": "background", "language": "zh"})
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form/ai/parse-document", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/form/ai/parse-document", withSession, h.ParseDocument)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "background", fs.lastDocType)
	assert.Equal(t, "notes.txt", fs.lastFile.Name)
}

func TestFormHandler_ParseDocument_BadType(t *testing.T) {
	fs := &mockFormService{}
	h := NewFormHandler(fs)

	body, ct := multipartBody(t, "notes.txt", "hello", map[string]string{"type": "summary"})
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/form/ai/parse-document", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/form/ai/parse-document", withSession, h.ParseDocument)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
	if fs.lastDocType != "" {
		t.Error("参数校验失败时不应调用 Service")
	}
}

// ═══════════════════════════════════════════════════════════
// OptionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestOptionHandler_List_Public(t *testing.T) {
	opts := &mockOptionService{}
	h := NewOptionHandler(opts, &mockFillCodeService{})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/options/:type", h.List)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/options/discipline?locale=en", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, opts.lastAccess, "未登录时不应携带填写码")
	assert.Equal(t, "en", opts.lastLocale)
}

func TestOptionHandler_List_WithSession(t *testing.T) {
	opts := &mockOptionService{}
	access := &model.AccessSession{Code: "FC-1", Locale: "zh"}
	h := NewOptionHandler(opts, &mockFillCodeService{access: access})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/options/:type", withSession, h.List)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/options/title", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access, opts.lastAccess)
	assert.Equal(t, "zh", opts.lastLocale, "未指定 locale 时使用会话语言")
}

func TestOptionHandler_List_UnknownType(t *testing.T) {
	h := NewOptionHandler(&mockOptionService{err: apperrors.Validation("未知的选项类型")}, &mockFillCodeService{})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/options/:type", h.List)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/options/colour", nil))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("期望 422，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_BudgetWorkbook(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("excel content"),
		filename: "APP-1_budget.xlsx",
	}
	h := NewExportHandler(mock, &mockFormService{})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/form/export/budget.xlsx", withSession, h.BudgetWorkbook)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/form/export/budget.xlsx", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "APP-1_budget.xlsx") {
		t.Errorf("Content-Disposition 不符: %s", cd)
	}
}

func TestExportHandler_MilestoneCalendar(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("BEGIN:VCALENDAR"),
		filename: "draft_milestones.ics",
	}
	h := NewExportHandler(mock, &mockFormService{})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/form/export/milestones.ics", withSession, h.MilestoneCalendar)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/form/export/milestones.ics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	assert.Equal(t, "BEGIN:VCALENDAR", w.Body.String())
}

func TestExportHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		export     *mockExportService
		form       *mockFormService
		wantStatus int
	}{
		{"无经费条目", &mockExportService{err: service.ErrExportNoBudget}, &mockFormService{}, http.StatusNotFound},
		{"无里程碑日期", &mockExportService{err: service.ErrExportNoMilestones}, &mockFormService{}, http.StatusBadRequest},
		{"生成失败", &mockExportService{err: service.ErrExportGenerateFail}, &mockFormService{}, http.StatusInternalServerError},
		{"会话失效", &mockExportService{}, &mockFormService{err: apperrors.Credential("请先输入填写码", nil)}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewExportHandler(tt.export, tt.form)

			_, _, w := setupGin()
			r := gin.New()
			r.GET("/form/export/budget.xlsx", withSession, h.BudgetWorkbook)
			r.ServeHTTP(w, httptest.NewRequest("GET", "/form/export/budget.xlsx", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("期望 %d，实际 %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// HealthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("test", map[string]Checker{
		"redis": func(context.Context) error { return nil },
	})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/health", h.Health)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"up"`)
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := NewHealthHandler("test", map[string]Checker{
		"database": func(context.Context) error { return fmt.Errorf("connection refused") },
	})

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/health", h.Health)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("期望 503，实际 %d", w.Code)
	}
}
