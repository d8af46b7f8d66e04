package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Session SessionStore
	Receipt ReceiptRepository // 数据库未启用时为 nil
}

// NewRepository 创建 Repository 聚合；db 为 nil 时不记录回执
func NewRepository(sessions SessionStore, db *gorm.DB) *Repository {
	repo := &Repository{Session: sessions}
	if db != nil {
		repo.Receipt = NewReceiptRepo(db)
	}
	return repo
}
