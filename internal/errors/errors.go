package errors

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	ErrInvalidRate        = errors.New("invalid rate limit")
	ErrInvalidCapacity    = errors.New("invalid bucket capacity")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrSchedulerClosed    = errors.New("scheduler is closed")
	ErrLockTimeout        = errors.New("resource lock acquisition timed out")
	ErrTaskPanicked       = errors.New("task panicked")
	ErrNotConnected       = errors.New("transport is not connected")
	ErrAlreadyConnected   = errors.New("transport is already connected")
	ErrConnectTimeout     = errors.New("connect attempt timed out")
	ErrDisconnectTimeout  = errors.New("disconnect acknowledgment timed out")
	ErrReconnectExhausted = errors.New("reconnect attempt limit exhausted")
	ErrQueueFull          = errors.New("outbound queue is full")
	ErrQueueDisabled      = errors.New("outbound queueing is disabled")
	ErrBandwidthDenied    = errors.New("send denied by bandwidth shaper")
	ErrChannelClosed      = errors.New("channel is closed")
	ErrContextCancelled   = errors.New("context cancelled")
)

// PacketError 数据包相关错误
type PacketError struct {
	Type    string
	Message string
	Cause   error
}

func (e *PacketError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("packet error [%s]: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("packet error [%s]: %s", e.Type, e.Message)
}

func (e *PacketError) Unwrap() error {
	return e.Cause
}

// NewPacketError 创建数据包错误
func NewPacketError(packetType, message string, cause error) *PacketError {
	return &PacketError{
		Type:    packetType,
		Message: message,
		Cause:   cause,
	}
}

// TransportError 传输层相关错误
type TransportError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error [%s]: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error [%s]: %s", e.Operation, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError 创建传输层错误
func NewTransportError(operation, message string, cause error) *TransportError {
	return &TransportError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// SchedulerError 调度器相关错误
type SchedulerError struct {
	Resource string
	Message  string
	Cause    error
}

func (e *SchedulerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scheduler error [%s]: %s: %v", e.Resource, e.Message, e.Cause)
	}
	return fmt.Sprintf("scheduler error [%s]: %s", e.Resource, e.Message)
}

func (e *SchedulerError) Unwrap() error {
	return e.Cause
}

// NewSchedulerError 创建调度器错误
func NewSchedulerError(resource, message string, cause error) *SchedulerError {
	return &SchedulerError{
		Resource: resource,
		Message:  message,
		Cause:    cause,
	}
}

// ConfigError 配置相关错误
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %s", e.Field, e.Message)
}

// NewConfigError 创建配置错误
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Is 透传标准库 errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 透传标准库 errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
