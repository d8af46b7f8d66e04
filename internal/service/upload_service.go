package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
)

// 解析文档用途
const (
	ParseTypeIntroduction = "introduction"
	ParseTypeBackground   = "background"
)

var (
	resumeExtensions = []string{".pdf", ".doc", ".docx"}
	parseExtensions  = []string{".pdf", ".doc", ".docx", ".txt"}

	contentTypes = map[string]string{
		".pdf":  "application/pdf",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".txt":  "text/plain",
	}
)

// ── 上传模块业务文案 ──

var (
	fileTypeMessages = map[string]string{
		"zh": "仅支持 %s 格式的文件",
		"en": "Only %s files are supported",
	}
	fileSizeMessages = map[string]string{
		"zh": "文件大小不能超过 %dMB",
		"en": "File size cannot exceed %dMB",
	}
	fileEmptyMessages = map[string]string{
		"zh": "请选择文件",
		"en": "Please choose a file",
	}
	parseTypeMessages = map[string]string{
		"zh": "解析类型必须为 introduction 或 background",
		"en": "Parse type must be introduction or background",
	}
	parseEmptyMessages = map[string]string{
		"zh": "未能从文档中解析出内容",
		"en": "No content could be extracted from the document",
	}
)

// FileUploader 预签名直传接口
type FileUploader interface {
	PresignedURL(ctx context.Context, cred apiclient.Credential, req *apiclient.PresignedURLRequest) (*apiclient.PresignedURLResponse, error)
	UploadObject(ctx context.Context, cred apiclient.Credential, uploadURL, contentType string, body io.Reader, size int64) error
}

// DocumentParser AI 文档解析接口
type DocumentParser interface {
	ParseDocument(ctx context.Context, cred apiclient.Credential, fileName string, file io.Reader, docType, language string) (string, error)
}

// UploadFile 待上传文件
type UploadFile struct {
	Name string
	Size int64
	Body io.Reader
}

// UploadService 简历上传与 AI 文档解析
type UploadService interface {
	// UploadResume 先取预签名地址再直传，返回 S3 Key
	UploadResume(ctx context.Context, access *model.AccessSession, file UploadFile) (string, error)
	// ParseDocument 解析文档，docType 为 introduction 或 background
	ParseDocument(ctx context.Context, access *model.AccessSession, file UploadFile, docType, language string) (string, error)
}

type uploadService struct {
	cfg      *config.FormConfig
	uploader FileUploader
	parser   DocumentParser
	logger   *zap.Logger
}

// NewUploadService 创建 UploadService 实例
func NewUploadService(cfg *config.FormConfig, uploader FileUploader, parser DocumentParser, logger *zap.Logger) UploadService {
	return &uploadService{cfg: cfg, uploader: uploader, parser: parser, logger: logger}
}

func (s *uploadService) UploadResume(ctx context.Context, access *model.AccessSession, file UploadFile) (string, error) {
	locale := access.PreferredLocale()
	ext, err := checkFile(file, resumeExtensions, s.cfg.ResumeMaxBytes, locale)
	if err != nil {
		return "", err
	}
	contentType := contentTypeOf(ext)

	target, err := s.uploader.PresignedURL(ctx, access, &apiclient.PresignedURLRequest{
		FileName: filepath.Base(file.Name),
		FileType: contentType,
		FileSize: file.Size,
	})
	if err != nil {
		s.logger.Warn("获取预签名地址失败", zap.String("file", file.Name), zap.Error(err))
		return "", err
	}

	if err := s.uploader.UploadObject(ctx, access, target.UploadURL, contentType, file.Body, file.Size); err != nil {
		s.logger.Warn("简历直传失败", zap.String("file", file.Name), zap.Error(err))
		return "", err
	}

	s.logger.Info("简历上传成功", zap.String("s3_key", target.S3Key), zap.Int64("size", file.Size))
	return target.S3Key, nil
}

func (s *uploadService) ParseDocument(ctx context.Context, access *model.AccessSession, file UploadFile, docType, language string) (string, error) {
	locale := access.PreferredLocale()
	if docType != ParseTypeIntroduction && docType != ParseTypeBackground {
		return "", apperrors.Validation(localized(parseTypeMessages, locale))
	}
	if _, err := checkFile(file, parseExtensions, s.cfg.ParseMaxBytes, locale); err != nil {
		return "", err
	}
	if language == "" {
		language = locale
	}

	content, err := s.parser.ParseDocument(ctx, access, filepath.Base(file.Name), file.Body, docType, language)
	if err != nil {
		s.logger.Warn("AI 文档解析失败", zap.String("file", file.Name), zap.String("type", docType), zap.Error(err))
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", apperrors.Integrity(localized(parseEmptyMessages, locale))
	}
	return content, nil
}

// checkFile 本地校验扩展名与大小，不通过时不发起任何网络请求
func checkFile(file UploadFile, allowed []string, maxBytes int64, locale string) (string, error) {
	if file.Name == "" || file.Body == nil || file.Size <= 0 {
		return "", apperrors.Validation(localized(fileEmptyMessages, locale))
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	if !contains(allowed, ext) {
		list := strings.ToUpper(strings.Join(trimDots(allowed), "/"))
		return "", apperrors.Validation(fmt.Sprintf(localized(fileTypeMessages, locale), list))
	}
	if maxBytes > 0 && file.Size > maxBytes {
		return "", apperrors.Validation(fmt.Sprintf(localized(fileSizeMessages, locale), maxBytes>>20))
	}
	return ext, nil
}

func contentTypeOf(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}
