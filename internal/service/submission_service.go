package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/DEV-OpenSCI/desci-form/internal/dto"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/metrics"
)

// ErrReceiptNotFound 本地无此申请编号的回执
var ErrReceiptNotFound = errors.New("未找到提交回执")

var submitFailedMessages = map[string]string{"zh": "提交失败，请稍后重试", "en": "Submission failed, please try again later"}

// ApplicationSubmitter 后端提交接口
type ApplicationSubmitter interface {
	SubmitApplication(ctx context.Context, cred apiclient.Credential, payload *apiclient.ApplicationPayload) (*apiclient.SubmitResponse, error)
}

// SubmissionService 提交网关：草稿 → 后端报文 → 申请编号
type SubmissionService interface {
	Submit(ctx context.Context, sessionID string, access *model.AccessSession, draft *model.ApplicationDraft) (string, error)
	Receipt(ctx context.Context, applicationNo string) (*dto.ReceiptResponse, error)
}

type submissionService struct {
	repo     *repository.Repository
	upstream ApplicationSubmitter
	logger   *zap.Logger
	now      func() time.Time
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(repo *repository.Repository, upstream ApplicationSubmitter, logger *zap.Logger) SubmissionService {
	return &submissionService{repo: repo, upstream: upstream, logger: logger, now: time.Now}
}

func (s *submissionService) Submit(ctx context.Context, sessionID string, access *model.AccessSession, draft *model.ApplicationDraft) (string, error) {
	payload := BuildWirePayload(draft)

	resp, err := s.upstream.SubmitApplication(ctx, access, payload)
	if err != nil {
		metrics.RecordSubmission(submissionOutcome(err))
		s.logger.Warn("提交申请失败", zap.String("session_id", sessionID), zap.Error(err))
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.ApplicationNo) == "" {
		metrics.RecordSubmission("integrity")
		s.logger.Error("后端未返回申请编号", zap.String("session_id", sessionID))
		return "", apperrors.Integrity(localized(submitFailedMessages, access.PreferredLocale()))
	}

	metrics.RecordSubmission("ok")
	s.logger.Info("申请提交成功",
		zap.String("session_id", sessionID),
		zap.String("application_no", resp.ApplicationNo),
	)
	s.recordReceipt(ctx, sessionID, access, draft, resp.ApplicationNo)
	return resp.ApplicationNo, nil
}

// recordReceipt 记录本地回执；失败不影响提交结果
func (s *submissionService) recordReceipt(ctx context.Context, sessionID string, access *model.AccessSession, draft *model.ApplicationDraft, appNo string) {
	if s.repo.Receipt == nil {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(access.FillCode()), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Warn("填写码指纹生成失败", zap.Error(err))
	}
	totals := draft.Totals()
	receipt := &model.SubmissionReceipt{
		ApplicationNo:   appNo,
		SessionID:       sessionID,
		ProjectName:     draft.ProjectName,
		LeaderEmail:     draft.Leader.Email,
		TotalDonation:   totals.Donation,
		TotalSelfFunded: totals.SelfFunded,
		FillCodeHash:    string(hash),
		SubmittedAt:     s.now(),
	}
	if err := s.repo.Receipt.Create(ctx, receipt); err != nil {
		s.logger.Warn("保存提交回执失败", zap.String("application_no", appNo), zap.Error(err))
	}
}

func (s *submissionService) Receipt(ctx context.Context, applicationNo string) (*dto.ReceiptResponse, error) {
	if s.repo.Receipt == nil {
		return nil, ErrReceiptNotFound
	}
	r, err := s.repo.Receipt.GetByApplicationNo(ctx, applicationNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &dto.ReceiptResponse{
		ApplicationNo:   r.ApplicationNo,
		ProjectName:     r.ProjectName,
		TotalDonation:   r.TotalDonation,
		TotalSelfFunded: r.TotalSelfFunded,
		SubmittedAt:     r.SubmittedAt.Format(time.RFC3339),
	}, nil
}

func submissionOutcome(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Kind.String()
	}
	return "error"
}

// ── 报文映射 ──

// BuildWirePayload 将草稿映射为后端报文：日期为 YYYY-MM-DD，
// goals 按行拆分并丢弃空行，字段名换成后端命名。
func BuildWirePayload(d *model.ApplicationDraft) *apiclient.ApplicationPayload {
	p := &apiclient.ApplicationPayload{
		BasicInfo: apiclient.BasicInfoPayload{
			Name:          d.ProjectName,
			StartDate:     d.StartDate.String(),
			EndDate:       d.EndDate.String(),
			Discipline:    d.Discipline,
			ResearchField: d.Field,
			TeamSize:      d.TeamSize,
		},
		Leader: apiclient.LeaderPayload{
			Name:      d.Leader.Name,
			ORCID:     strings.TrimSpace(d.Leader.ORCID),
			Email:     d.Leader.Email,
			Title:     d.Leader.Title,
			Education: d.Leader.Education,
			Bio:       strings.TrimSpace(d.Leader.Bio),
		},
		Members:      make([]apiclient.MemberPayload, 0, len(d.Members)),
		Introduction: d.ProjectSummary,
		Background:   d.Background,
		Milestones:   make([]apiclient.MilestonePayload, 0, len(d.Milestones)),
		Budgets:      make([]apiclient.BudgetPayload, 0, len(d.BudgetItems)),
		Contact: apiclient.ContactPayload{
			Name:  d.Contact.Name,
			Email: d.Contact.Email,
			Phone: d.Contact.Phone,
		},
	}

	for _, m := range d.Members {
		p.Members = append(p.Members, apiclient.MemberPayload{Role: m.Role, ResumeS3Key: m.ResumeRef})
	}
	for _, m := range d.Milestones {
		p.Milestones = append(p.Milestones, apiclient.MilestonePayload{
			Phase:     m.Stage,
			StartDate: m.StartDate.String(),
			EndDate:   m.EndDate.String(),
			Content:   m.Content,
			Goals:     SplitGoals(m.Goals),
		})
	}
	for _, b := range d.BudgetItems {
		p.Budgets = append(p.Budgets, apiclient.BudgetPayload{
			Category:         b.Category,
			DonationAmount:   b.DonationAmount,
			SelfFundedAmount: b.SelfFundedAmount,
		})
	}
	return p
}

// SplitGoals 按换行拆分目标，去掉首尾空白并丢弃空行，保持顺序
func SplitGoals(goals string) []string {
	out := []string{}
	for _, line := range strings.Split(goals, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
