package bolt11

import (
	"math"
	"strconv"
)

// 1 BTC = 10^11 毫聪
const msatPerBtc = 100_000_000_000

// 各量级后缀对应的毫聪系数
// m = 10^-3 BTC，u = 10^-6，n = 10^-9；p（10^-12）不足 1 毫聪需单独处理
var multiplierMsat = map[byte]int64{
	'm': 100_000_000,
	'u': 100_000,
	'n': 100,
}

// parseAmount 解析可读前缀中的金额段，返回毫聪
// 空串表示未填金额（由付款方决定），返回 nil 而非 0
func parseAmount(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}

	digits := s
	var multiplier byte
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		multiplier = last
		digits = s[:len(s)-1]
	}

	if digits == "" {
		return nil, ErrBadAmount
	}
	// 金额段不允许前导零
	if len(digits) > 1 && digits[0] == '0' {
		return nil, ErrBadAmount
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, ErrBadAmount
	}

	var msat int64
	switch multiplier {
	case 0:
		if value > math.MaxInt64/msatPerBtc {
			return nil, ErrAmountOverflow
		}
		msat = value * msatPerBtc
	case 'p':
		// 1 p-BTC = 0.1 毫聪，余数意味着精度低于最小单位，拒绝而非截断
		if value%10 != 0 {
			return nil, ErrSubMsatPrecision
		}
		msat = value / 10
	case 'm', 'u', 'n':
		factor := multiplierMsat[multiplier]
		if value > math.MaxInt64/factor {
			return nil, ErrAmountOverflow
		}
		msat = value * factor
	default:
		return nil, ErrBadAmount
	}

	return &msat, nil
}
