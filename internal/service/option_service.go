package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/DEV-OpenSCI/desci-form/internal/dto"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
)

var optionKindMessages = map[string]string{"zh": "未知的选项类型", "en": "Unknown option type"}

// OptionService 下拉选项查询
type OptionService interface {
	// List 返回指定类别的选项；access 非空且启用远程时优先使用后端数据
	List(ctx context.Context, access *model.AccessSession, kind, locale string) (*dto.OptionsResponse, error)
	// Warm 预取全部后端类别写入目录，失败仅记录日志
	Warm(ctx context.Context, access *model.AccessSession)
}

type optionService struct {
	catalog       *options.Catalog
	remote        *options.Remote // 未启用远程时为 nil
	defaultLocale string
	logger        *zap.Logger
}

// NewOptionService 创建 OptionService 实例；remote 可为 nil
func NewOptionService(catalog *options.Catalog, remote *options.Remote, defaultLocale string, logger *zap.Logger) OptionService {
	return &optionService{catalog: catalog, remote: remote, defaultLocale: defaultLocale, logger: logger}
}

func (s *optionService) List(ctx context.Context, access *model.AccessSession, kind, locale string) (*dto.OptionsResponse, error) {
	if locale == "" {
		locale = s.defaultLocale
	}
	k, ok := options.ParseKind(kind)
	if !ok {
		return nil, apperrors.Validation(localized(optionKindMessages, locale))
	}

	opts := s.catalog.List(locale, k)
	if s.remote != nil && access != nil && isRemoteKind(k) {
		fetched, err := s.remote.Get(ctx, access, locale, k)
		if err != nil {
			s.logger.Warn("拉取后端选项失败，使用本地目录", zap.String("kind", kind), zap.Error(err))
		} else if len(fetched) > 0 {
			s.catalog.Replace(locale, k, fetched)
			opts = fetched
		}
	}

	resp := &dto.OptionsResponse{Type: kind, Locale: locale, Options: make([]dto.OptionEntry, 0, len(opts))}
	for _, o := range opts {
		resp.Options = append(resp.Options, dto.OptionEntry{Value: o.Value, Label: o.Label, Description: o.Description})
	}
	return resp, nil
}

func (s *optionService) Warm(ctx context.Context, access *model.AccessSession) {
	if s.remote == nil || access == nil {
		return
	}
	locale := access.PreferredLocale()
	if locale == "" {
		locale = s.defaultLocale
	}
	if err := s.remote.Refresh(ctx, access, s.catalog, locale); err != nil {
		s.logger.Warn("预取后端选项失败", zap.Error(err))
	}
}

func isRemoteKind(k options.Kind) bool {
	for _, rk := range options.RemoteKinds {
		if rk == k {
			return true
		}
	}
	return false
}
