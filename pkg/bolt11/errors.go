package bolt11

import "errors"

// 解码错误集合，调用方可用 errors.Is 精确区分拒绝原因
var (
	// ErrEmpty 输入为空
	ErrEmpty = errors.New("bolt11: empty payment request")
	// ErrBadCharset 含有字符集之外的字符，或大小写混用
	ErrBadCharset = errors.New("bolt11: invalid character in payment request")
	// ErrBadChecksum 校验和不匹配
	ErrBadChecksum = errors.New("bolt11: checksum mismatch")
	// ErrWrongVariant 使用了错误的编码变体（bech32m）
	ErrWrongVariant = errors.New("bolt11: wrong bech32 variant")
	// ErrTooShort 数据段不足以容纳时间戳与签名
	ErrTooShort = errors.New("bolt11: payload too short")
	// ErrBadPrefix 可读前缀不是已知网络
	ErrBadPrefix = errors.New("bolt11: unknown network prefix")
	// ErrBadAmount 金额段非法
	ErrBadAmount = errors.New("bolt11: malformed amount")
	// ErrAmountOverflow 金额换算为毫聪时溢出
	ErrAmountOverflow = errors.New("bolt11: amount overflows millisatoshi")
	// ErrSubMsatPrecision 金额精度低于 1 毫聪（p 后缀不能被 10 整除）
	ErrSubMsatPrecision = errors.New("bolt11: amount has sub-millisatoshi precision")
	// ErrTagTruncated 标签字段的类型、长度或数据越过签名边界
	ErrTagTruncated = errors.New("bolt11: tagged field overruns payload")
	// ErrExpiryOverflow 过期时间超出 int64 可表示范围
	ErrExpiryOverflow = errors.New("bolt11: expiry overflows int64")
	// ErrBadPadding 5 比特转 8 比特后残留非零填充位
	ErrBadPadding = errors.New("bolt11: non-zero bit padding")
	// ErrBadDescription 描述字段不是合法的 UTF-8
	ErrBadDescription = errors.New("bolt11: description is not valid UTF-8")
)
