package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/metrics"
)

// FillCodeHeader 携带填写码的请求头
const FillCodeHeader = "X-Fill-Code"

const maxResponseBytes = 10 << 20

// Credential 出站请求的填写码来源
type Credential interface {
	FillCode() string
}

// localeAware 可选：凭据携带的界面语言，用于选择错误文案
type localeAware interface {
	PreferredLocale() string
}

// Client 申请后端 REST 客户端
type Client struct {
	baseURL string
	http    *http.Client
	locale  string
	logger  *zap.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLocale 设置默认文案语言
func WithLocale(locale string) Option {
	return func(c *Client) { c.locale = locale }
}

// New 创建客户端；baseURL 形如 https://host/api/project-form
func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		locale:  "zh",
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope 后端统一响应
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Success   *bool           `json:"success"`
}

func (c *Client) localeOf(cred Credential) string {
	if la, ok := cred.(localeAware); ok && la.PreferredLocale() != "" {
		return la.PreferredLocale()
	}
	return c.locale
}

// ValidateFillCode 校验填写码
// GET /fill-code/validate
func (c *Client) ValidateFillCode(ctx context.Context, code string) (*FillCodeValidation, error) {
	var out FillCodeValidation
	err := c.do(ctx, "fill_code_validate", staticCode(code), http.MethodGet, "/fill-code/validate", nil, "", &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOptions 获取指定类型的下拉选项，language 为空时由后端决定
// GET /options/{type}?language=
func (c *Client) GetOptions(ctx context.Context, cred Credential, kind, language string) ([]SelectOption, error) {
	var out []SelectOption
	path := "/options/" + url.PathEscape(kind)
	if language != "" {
		path += "?" + url.Values{"language": {language}}.Encode()
	}
	if err := c.do(ctx, "options", cred, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseDocument AI 文档解析
// POST /ai/parse-document (multipart: file, type, language)
func (c *Client) ParseDocument(ctx context.Context, cred Credential, fileName string, file io.Reader, docType, language string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("构造 multipart 失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("读取待解析文件失败: %w", err)
	}
	_ = mw.WriteField("type", docType)
	_ = mw.WriteField("language", language)
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("构造 multipart 失败: %w", err)
	}

	var out ParseResponse
	if err := c.do(ctx, "ai_parse", cred, http.MethodPost, "/ai/parse-document", &body, mw.FormDataContentType(), &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// PresignedURL 获取 S3 预签名上传地址
// POST /file/presigned-url
func (c *Client) PresignedURL(ctx context.Context, cred Credential, req *PresignedURLRequest) (*PresignedURLResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var out PresignedURLResponse
	if err := c.do(ctx, "presigned_url", cred, http.MethodPost, "/file/presigned-url", bytes.NewReader(b), "application/json", &out); err != nil {
		return nil, err
	}
	if out.UploadURL == "" || out.S3Key == "" {
		return nil, apperrors.Integrity(pick(malformedMessages, c.localeOf(cred)))
	}
	return &out, nil
}

// UploadObject 直传文件到预签名地址（不经过后端信封，不携带填写码）
func (c *Client) UploadObject(ctx context.Context, cred Credential, uploadURL, contentType string, body io.Reader, size int64) error {
	locale := c.localeOf(cred)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return fmt.Errorf("构造上传请求失败: %w", err)
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstream("object_put", "transport_error", time.Since(start))
		return apperrors.Transport(NetworkMessage(locale), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordUpstream("object_put", "http_error", time.Since(start))
		return apperrors.Business(resp.StatusCode, 0, pick(uploadFailedMessages, locale))
	}
	metrics.RecordUpstream("object_put", "ok", time.Since(start))
	return nil
}

// SubmitApplication 提交项目申请
// POST /application/submit
func (c *Client) SubmitApplication(ctx context.Context, cred Credential, payload *ApplicationPayload) (*SubmitResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out SubmitResponse
	if err := c.do(ctx, "submit", cred, http.MethodPost, "/application/submit", bytes.NewReader(b), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do 执行请求并按统一信封解码
func (c *Client) do(ctx context.Context, endpoint string, cred Credential, method, path string, body io.Reader, contentType string, out interface{}) error {
	locale := c.localeOf(cred)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cred != nil {
		if code := cred.FillCode(); code != "" {
			req.Header.Set(FillCodeHeader, code)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstream(endpoint, "transport_error", time.Since(start))
		c.logger.Warn("上游请求失败", zap.String("endpoint", endpoint), zap.Error(err))
		return apperrors.Transport(NetworkMessage(locale), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordUpstream(endpoint, "transport_error", time.Since(start))
		return apperrors.Transport(NetworkMessage(locale), err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		metrics.RecordUpstream(endpoint, "http_error", time.Since(start))
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = StatusMessage(resp.StatusCode, locale)
		}
		c.logger.Info("上游返回错误状态",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return apperrors.Business(resp.StatusCode, resp.StatusCode, msg)
	}

	if decodeErr != nil {
		metrics.RecordUpstream(endpoint, "malformed", time.Since(start))
		return apperrors.Integrity(pick(malformedMessages, locale))
	}

	if env.Success != nil && !*env.Success {
		metrics.RecordUpstream(endpoint, "business_error", time.Since(start))
		msg := env.Message
		if msg == "" {
			msg = pick(requestFailedMessages, locale)
		}
		code := env.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return apperrors.Business(resp.StatusCode, code, msg)
	}

	metrics.RecordUpstream(endpoint, "ok", time.Since(start))

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Integrity(pick(malformedMessages, locale))
	}
	return nil
}

// staticCode 以显式填写码作为凭据（校验接口在会话建立前调用）
type staticCode string

func (s staticCode) FillCode() string { return string(s) }

// IsTransport 便捷判断网络错误
func IsTransport(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Kind == apperrors.KindTransport
}
