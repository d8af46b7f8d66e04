package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
)

// ── 填写码模块业务文案 ──

var (
	fillCodeEmptyMessages   = map[string]string{"zh": "请输入填写码", "en": "Please enter the fill code"}
	fillCodeInvalidMessages = map[string]string{"zh": "填写码无效", "en": "Invalid fill code"}
	fillCodeFailedMessages  = map[string]string{"zh": "校验失败，请稍后重试", "en": "Validation failed, please try again later"}
	fillCodeMissingMessages = map[string]string{"zh": "请先输入填写码", "en": "Please enter your fill code first"}
)

func localized(m map[string]string, locale string) string {
	if msg, ok := m[locale]; ok {
		return msg
	}
	return m["zh"]
}

// FillCodeVerifier 后端填写码校验接口
type FillCodeVerifier interface {
	ValidateFillCode(ctx context.Context, code string) (*apiclient.FillCodeValidation, error)
}

// FillCodeService 填写码门禁：校验、恢复、清除
type FillCodeService interface {
	// Validate 校验填写码，成功后写入会话存储
	Validate(ctx context.Context, sessionID, code, locale string) (*model.AccessSession, error)
	// Current 读取会话中的填写码（刷新页面后恢复）
	Current(ctx context.Context, sessionID string) (*model.AccessSession, error)
	// Clear 清除填写码，幂等
	Clear(ctx context.Context, sessionID string) error
}

type fillCodeService struct {
	cfg      *config.FormConfig
	repo     *repository.Repository
	verifier FillCodeVerifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewFillCodeService 创建 FillCodeService 实例
func NewFillCodeService(
	cfg *config.FormConfig,
	repo *repository.Repository,
	verifier FillCodeVerifier,
	logger *zap.Logger,
) FillCodeService {
	return &fillCodeService{
		cfg:      cfg,
		repo:     repo,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *fillCodeService) Validate(ctx context.Context, sessionID, code, locale string) (*model.AccessSession, error) {
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.Credential(localized(fillCodeEmptyMessages, locale), nil)
	}

	access := &model.AccessSession{Code: code, Locale: locale, CreatedAt: s.now()}

	// 免码通道：本地通过，不请求后端，无过期时间
	if s.cfg.BypassCode != "" && strings.EqualFold(code, s.cfg.BypassCode) {
		s.logger.Info("使用免码通道", zap.String("session_id", sessionID))
		return access, s.save(ctx, sessionID, access)
	}

	result, err := s.verifier.ValidateFillCode(ctx, code)
	if err != nil {
		s.logger.Warn("填写码校验请求失败",
			zap.String("session_id", sessionID),
			zap.String("code", model.MaskFillCode(code)),
			zap.Error(err),
		)
		return nil, apperrors.Credential(localized(fillCodeFailedMessages, locale), err)
	}
	if !result.Valid {
		msg := localized(fillCodeInvalidMessages, locale)
		if result.Message != nil && *result.Message != "" {
			msg = *result.Message
		}
		return nil, apperrors.Credential(msg, nil)
	}

	access.ExpiresAt = result.ExpireTime
	return access, s.save(ctx, sessionID, access)
}

func (s *fillCodeService) save(ctx context.Context, sessionID string, access *model.AccessSession) error {
	if err := s.repo.Session.SaveAccess(ctx, sessionID, access); err != nil {
		s.logger.Error("保存填写码会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func (s *fillCodeService) Current(ctx context.Context, sessionID string) (*model.AccessSession, error) {
	access, err := s.repo.Session.GetAccess(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.Credential(localized(fillCodeMissingMessages, s.cfg.DefaultLocale), err)
		}
		s.logger.Error("读取填写码会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return access, nil
}

func (s *fillCodeService) Clear(ctx context.Context, sessionID string) error {
	if err := s.repo.Session.DeleteAccess(ctx, sessionID); err != nil {
		s.logger.Error("清除填写码会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}
