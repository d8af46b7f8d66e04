package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
)

// ReceiptRepository 提交回执数据访问接口
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *model.SubmissionReceipt) error
	GetByApplicationNo(ctx context.Context, applicationNo string) (*model.SubmissionReceipt, error)
	ListRecent(ctx context.Context, limit int) ([]model.SubmissionReceipt, error)
}

type receiptRepo struct {
	db *gorm.DB
}

// NewReceiptRepo 创建 ReceiptRepository 实例
func NewReceiptRepo(db *gorm.DB) ReceiptRepository {
	return &receiptRepo{db: db}
}

func (r *receiptRepo) Create(ctx context.Context, receipt *model.SubmissionReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *receiptRepo) GetByApplicationNo(ctx context.Context, applicationNo string) (*model.SubmissionReceipt, error) {
	var receipt model.SubmissionReceipt
	err := r.db.WithContext(ctx).Where("application_no = ?", applicationNo).First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepo) ListRecent(ctx context.Context, limit int) ([]model.SubmissionReceipt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var receipts []model.SubmissionReceipt
	err := r.db.WithContext(ctx).Order("submitted_at DESC").Limit(limit).Find(&receipts).Error
	return receipts, err
}
