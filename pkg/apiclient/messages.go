package apiclient

import "net/http"

// 与前端一致的兜底文案
var statusMessages = map[string]map[int]string{
	"zh": {
		http.StatusBadRequest:          "请求参数错误",
		http.StatusUnauthorized:        "填写码无效或已过期",
		http.StatusForbidden:           "没有权限执行此操作",
		http.StatusNotFound:            "请求的资源不存在",
		http.StatusInternalServerError: "服务器错误，请稍后重试",
		http.StatusServiceUnavailable:  "服务暂时不可用，请稍后重试",
		0:                              "请求失败，请稍后重试",
	},
	"en": {
		http.StatusBadRequest:          "Invalid request parameters",
		http.StatusUnauthorized:        "Fill code is invalid or expired",
		http.StatusForbidden:           "You are not allowed to perform this action",
		http.StatusNotFound:            "The requested resource does not exist",
		http.StatusInternalServerError: "Server error, please try again later",
		http.StatusServiceUnavailable:  "Service temporarily unavailable, please try again later",
		0:                              "Request failed, please try again later",
	},
}

var networkMessages = map[string]string{
	"zh": "网络错误，请检查网络连接",
	"en": "Network error, please check your connection",
}

var requestFailedMessages = map[string]string{
	"zh": "请求失败",
	"en": "Request failed",
}

var uploadFailedMessages = map[string]string{
	"zh": "文件上传失败",
	"en": "File upload failed",
}

var malformedMessages = map[string]string{
	"zh": "服务器响应格式错误",
	"en": "Malformed server response",
}

func pick(m map[string]string, locale string) string {
	if s, ok := m[locale]; ok {
		return s
	}
	return m["zh"]
}

// StatusMessage 按 HTTP 状态返回兜底文案
func StatusMessage(status int, locale string) string {
	msgs, ok := statusMessages[locale]
	if !ok {
		msgs = statusMessages["zh"]
	}
	if s, ok := msgs[status]; ok {
		return s
	}
	return msgs[0]
}

// NetworkMessage 网络不可达文案
func NetworkMessage(locale string) string {
	return pick(networkMessages, locale)
}
