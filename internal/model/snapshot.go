package model

import "time"

// DraftSnapshot 会话中草稿与步骤的持久化快照，用于刷新页面后恢复
type DraftSnapshot struct {
	Draft        *ApplicationDraft `json:"draft"`
	CurrentIndex int               `json:"currentIndex"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
