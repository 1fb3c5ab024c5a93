package services

import (
	"errors"
	"fmt"
)

// ErrorKind 会话失败类型，onError 回调据此区分
type ErrorKind string

const (
	KindSessionInit ErrorKind = "SessionInitError"
	KindProtocol    ErrorKind = "ProtocolError"
	KindTransport   ErrorKind = "TransportError"
)

var (
	ErrSessionInit = errors.New("weread: session not initialized")
	ErrProtocol    = errors.New("weread: malformed response")
	ErrTransport   = errors.New("weread: request failed")

	ErrEmptyQuery  = errors.New("weread: query is empty")
	ErrAuthExpired = errors.New("weread: login session expired")
	ErrProbeFailed = errors.New("weread: liveness probe failed")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindSessionInit:
		return ErrSessionInit
	case KindProtocol:
		return ErrProtocol
	case KindTransport:
		return ErrTransport
	}
	return nil
}

// QueryError 会话失败的错误，errors.Is 可匹配 Kind 对应的哨兵错误和底层原因
type QueryError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newQueryError(kind ErrorKind, op string, err error) *QueryError {
	return &QueryError{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误链上的 ErrorKind，非 QueryError 返回空串
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

// NetworkError 传输层失败（连接、超时、取消等）
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError 非 2xx 响应
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected http status %d", e.URL, e.Status)
}

// ServiceError 响应体里的非零 errCode
type ServiceError struct {
	Code int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service errCode %d", e.Code)
}
