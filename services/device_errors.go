package services

import "fmt"

// DeviceErrorCode 终端解析/凭据相关的错误码
type DeviceErrorCode string

const (
	DeviceErrCodeNotFound            DeviceErrorCode = "DEVICE_NOT_FOUND"
	DeviceErrCodeCredentialsNotFound DeviceErrorCode = "LOCAL_CREDENTIALS_NOT_FOUND"
	DeviceErrCodeCredentialsExpired  DeviceErrorCode = "CREDENTIALS_EXPIRED"
	DeviceErrCodeUnknown             DeviceErrorCode = "UNKNOWN_DEVICE_ERROR"
)

// DeviceError 带错误码的终端错误，消息格式为 "[CODE] 说明 (终端名)"
type DeviceError struct {
	Code         DeviceErrorCode
	TerminalName string
	Detail       string
}

func (e *DeviceError) Error() string {
	label := ""
	if e.TerminalName != "" {
		label = fmt.Sprintf(" (%s)", e.TerminalName)
	}

	switch e.Code {
	case DeviceErrCodeNotFound:
		return fmt.Sprintf("[DEVICE_NOT_FOUND] 终端不存在%s", label)
	case DeviceErrCodeCredentialsNotFound:
		return fmt.Sprintf("[LOCAL_CREDENTIALS_NOT_FOUND] 本地凭据不存在%s", label)
	case DeviceErrCodeCredentialsExpired:
		return fmt.Sprintf("[CREDENTIALS_EXPIRED] 本地凭据已过期%s", label)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("[UNKNOWN_DEVICE_ERROR] %s%s", e.Detail, label)
		}
		return fmt.Sprintf("[UNKNOWN_DEVICE_ERROR] 终端未知错误%s", label)
	}
}

// NewDeviceError 创建一个带错误码的终端错误
func NewDeviceError(code DeviceErrorCode, terminalName, detail string) *DeviceError {
	return &DeviceError{Code: code, TerminalName: terminalName, Detail: detail}
}
