package model

import "time"

// SubmissionReceipt 提交回执表，对应 submission_receipts
// 仅记录后端返回的申请编号与摘要，申请正文由后端持久化。
type SubmissionReceipt struct {
	ReceiptID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"receipt_id"`
	ApplicationNo   string    `gorm:"type:varchar(64);not null;uniqueIndex"           json:"application_no"`
	SessionID       string    `gorm:"type:varchar(64);not null"                       json:"session_id"`
	ProjectName     string    `gorm:"type:varchar(255);not null"                      json:"project_name"`
	LeaderEmail     string    `gorm:"type:varchar(255)"                               json:"leader_email"`
	TotalDonation   float64   `gorm:"type:numeric(14,2);not null;default:0"           json:"total_donation"`
	TotalSelfFunded float64   `gorm:"type:numeric(14,2);not null;default:0"           json:"total_self_funded"`
	FillCodeHash    string    `gorm:"type:varchar(100)"                               json:"-"`
	SubmittedAt     time.Time `gorm:"not null"                                        json:"submitted_at"`
	BaseModel
}

// TableName 指定表名
func (SubmissionReceipt) TableName() string { return "submission_receipts" }
