package service

import (
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
)

// Upstream 申请后端的全部出站能力（*apiclient.Client 实现）
type Upstream interface {
	FillCodeVerifier
	ApplicationSubmitter
	FileUploader
	DocumentParser
}

// Service 所有 Service 的聚合入口
type Service struct {
	FillCode   FillCodeService
	Form       FormService
	Submission SubmissionService
	Upload     UploadService
	Option     OptionService
	Export     ExportService
}

// NewService 创建 Service 聚合；remote 为 nil 时仅使用本地选项目录，clk 为 nil 时使用真实时钟
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	upstream Upstream,
	catalog *options.Catalog,
	remote *options.Remote,
	clk clock.WithTicker,
	logger *zap.Logger,
) *Service {
	fillCode := NewFillCodeService(&cfg.Form, repo, upstream, logger)
	submission := NewSubmissionService(repo, upstream, logger)
	upload := NewUploadService(&cfg.Form, upstream, upstream, logger)
	option := NewOptionService(catalog, remote, cfg.Form.DefaultLocale, logger)
	validator := form.NewValidator(catalog)

	return &Service{
		FillCode:   fillCode,
		Form:       NewFormService(&cfg.Form, repo, validator, fillCode, submission, upload, option, clk, logger),
		Submission: submission,
		Upload:     upload,
		Option:     option,
		Export:     NewExportService(catalog, logger),
	}
}
