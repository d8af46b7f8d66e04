package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DEV-OpenSCI/desci-form/internal/dto"
	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// writeError 表单相关错误统一映射
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, form.ErrUnknownPath),
		errors.Is(err, form.ErrOutOfRange),
		errors.Is(err, form.ErrFixedField),
		errors.Is(err, form.ErrInvalidValue),
		errors.Is(err, form.ErrNotLastStep):
		response.BadRequest(c, apperrors.CodeInvalidParam, err.Error())
	case errors.Is(err, form.ErrBusy),
		errors.Is(err, form.ErrAlreadySubmitted),
		errors.Is(err, service.ErrFormBusy):
		response.Conflict(c, apperrors.CodeConflict, err.Error())
	default:
		response.FromError(c, err)
	}
}

// writeInvalid 校验未通过：422 + 错误树
func writeInvalid(c *gin.Context, errs *form.ErrorTree, state form.State, message string) {
	response.ErrorWithData(c, http.StatusUnprocessableEntity, apperrors.CodeValidation, message,
		dto.NewValidationErrorData(errs, state))
}

// formFile 读取 multipart 的 file 字段；失败时已写入响应
func formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusRequestEntityTooLarge, apperrors.CodeBodyTooLarge, "请求体过大")
			return nil, false
		}
		response.BadRequest(c, apperrors.CodeInvalidParam, "请选择要上传的文件")
		return nil, false
	}
	return fh, true
}

// openUpload 将 multipart 文件转为服务层上传参数；调用方负责关闭
func openUpload(fh *multipart.FileHeader) (service.UploadFile, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, nil, err
	}
	return service.UploadFile{Name: fh.Filename, Size: fh.Size, Body: f}, f, nil
}
