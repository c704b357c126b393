package interfaces

import "errors"

var (
	// ErrUpstreamUnavailable 外部接口失败或超时；本轮跳过该单元，下一轮重试
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse 平台返回了无法解析的数据；降级为部分字段而不是整批失败
	ErrMalformedResponse = errors.New("malformed response")
	// ErrConstraintViolation upsert 主键冲突且必填字段不一致；按行返回，不中断批次
	ErrConstraintViolation = errors.New("constraint violation")

	ErrLinkNotFound      = errors.New("account link not found")
	ErrLinkNotReportable = errors.New("only name-matched links can be reported")
	ErrLinkNotRemovable  = errors.New("partnership links cannot be removed by players")
	ErrNotLinkOwner      = errors.New("requester does not own the linked account")
	ErrInvalidInput      = errors.New("invalid input")
)
