// Package bolt11 解码 Lightning 支付请求（BOLT11 编码）
//
// 纯函数实现，不依赖节点、不发起任何网络调用，可安全用于任意不可信输入。
// 只解析可读前缀与标签数据，尾部签名块按设计跳过、不做验签。
package bolt11

import (
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// lightning: URI 前缀，扫码输入常见
	uriPrefix = "lightning:"

	// 时间戳固定 7 个符号（35 比特）
	timestampSymbols = 7
	// 签名块固定 104 个符号（65 字节）
	signatureSymbols = 104

	// 未携带 x 标签时的默认过期时间，单位：秒
	defaultExpirySeconds = 3600

	// 标签类型值
	tagPaymentHash = 1  // p
	tagExpiry      = 6  // x
	tagDescription = 13 // d

	// p 标签固定 52 符号（32 字节哈希），长度不符按未知标签跳过
	paymentHashSymbols = 52

	// x 标签最多 12 符号（60 比特），再长必然超出 int64
	expiryMaxSymbols = 12
)

// 已知网络前缀，按长度倒序以保证最长匹配
var networks = []string{"bcrt", "tbs", "bc", "tb", "sb"}

// DecodedInvoice 支付请求解码结果
type DecodedInvoice struct {
	// Network 网络标识（bc / tb / tbs / bcrt / sb）
	Network string
	// MilliSat 金额（毫聪）；nil 表示请求未填金额，由付款方决定
	MilliSat *int64
	// PaymentHash 支付哈希（hex），请求未携带 p 标签时为空
	PaymentHash string
	// Description 人类可读描述
	Description *string
	// Timestamp 请求的创建时间
	Timestamp time.Time
	// ExpirySeconds 过期秒数，缺省为 3600
	ExpirySeconds int64
}

// AmountSats 金额取整到聪，未填金额时返回 0
func (d *DecodedInvoice) AmountSats() int64 {
	if d.MilliSat == nil {
		return 0
	}
	return *d.MilliSat / 1000
}

// Decode 解码支付请求字符串
// 容忍首尾空白与 lightning: URI 前缀；大小写统一后解析，
// 大小写混用按字符集错误拒绝
func Decode(raw string) (*DecodedInvoice, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= len(uriPrefix) && strings.EqualFold(s[:len(uriPrefix)], uriPrefix) {
		s = strings.TrimSpace(s[len(uriPrefix):])
	}
	if s == "" {
		return nil, ErrEmpty
	}
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return nil, ErrBadCharset
	}
	s = strings.ToLower(s)

	hrp, data, err := decodeBech32(s)
	if err != nil {
		return nil, err
	}

	network, msat, err := parseHumanReadable(hrp)
	if err != nil {
		return nil, err
	}

	if len(data) < timestampSymbols+signatureSymbols {
		return nil, ErrTooShort
	}

	decoded := &DecodedInvoice{
		Network:       network,
		MilliSat:      msat,
		Timestamp:     time.Unix(readBigEndian(data[:timestampSymbols]), 0).UTC(),
		ExpirySeconds: defaultExpirySeconds,
	}

	if err := parseTaggedFields(decoded, data[timestampSymbols:len(data)-signatureSymbols]); err != nil {
		return nil, err
	}

	return decoded, nil
}

// parseHumanReadable 拆解可读前缀：ln + 网络 + 可选金额
func parseHumanReadable(hrp string) (string, *int64, error) {
	if !strings.HasPrefix(hrp, "ln") {
		return "", nil, ErrBadPrefix
	}
	rest := hrp[2:]

	for _, network := range networks {
		if strings.HasPrefix(rest, network) {
			msat, err := parseAmount(rest[len(network):])
			if err != nil {
				return "", nil, err
			}
			return network, msat, nil
		}
	}
	return "", nil, ErrBadPrefix
}

// parseTaggedFields 扫描标签字段区
// 每个字段为 1 符号类型 + 2 符号大端长度 + 数据；未知类型跳过以保持前向兼容
func parseTaggedFields(decoded *DecodedInvoice, fields []byte) error {
	cursor := 0
	for cursor < len(fields) {
		if cursor+3 > len(fields) {
			return ErrTagTruncated
		}
		tagType := fields[cursor]
		dataLength := int(fields[cursor+1])<<5 | int(fields[cursor+2])
		cursor += 3

		if cursor+dataLength > len(fields) {
			return ErrTagTruncated
		}
		tagData := fields[cursor : cursor+dataLength]
		cursor += dataLength

		switch tagType {
		case tagDescription:
			raw, err := fiveToEight(tagData)
			if err != nil {
				return err
			}
			if !utf8.Valid(raw) {
				return ErrBadDescription
			}
			description := string(raw)
			decoded.Description = &description

		case tagExpiry:
			if dataLength > expiryMaxSymbols {
				return ErrExpiryOverflow
			}
			decoded.ExpirySeconds = readBigEndian(tagData)

		case tagPaymentHash:
			if dataLength != paymentHashSymbols {
				continue
			}
			raw, err := fiveToEight(tagData)
			if err != nil {
				return err
			}
			decoded.PaymentHash = hex.EncodeToString(raw)
		}
	}
	return nil
}

// readBigEndian 把符号序列当作大端 32 进制整数累加
func readBigEndian(data []byte) int64 {
	var value int64
	for _, v := range data {
		value = value<<5 | int64(v)
	}
	return value
}
