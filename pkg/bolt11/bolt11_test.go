package bolt11

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- 测试用编码辅助 ----------

// bech32Encode 用与解码同一套字符集与多项式生成合法编码
func bech32Encode(hrp string, data []byte, variant uint32) string {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ variant

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range data {
		sb.WriteByte(charset[v])
	}
	for i := 0; i < 6; i++ {
		sb.WriteByte(charset[byte(mod>>uint(5*(5-i)))&31])
	}
	return sb.String()
}

// eightToFive 字节转 5 比特符号，尾部补零填充
func eightToFive(raw []byte) []byte {
	var out []byte
	var acc uint32
	var bits uint
	for _, b := range raw {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out = append(out, byte(acc>>bits)&31)
		}
	}
	if bits > 0 {
		out = append(out, byte(acc<<(5-bits))&31)
	}
	return out
}

// writeBigEndian 整数转大端符号序列
func writeBigEndian(value int64, symbols int) []byte {
	out := make([]byte, symbols)
	for i := symbols - 1; i >= 0; i-- {
		out[i] = byte(value & 31)
		value >>= 5
	}
	return out
}

// tagField 组装 类型 + 2 符号大端长度 + 数据
func tagField(tagType byte, data []byte) []byte {
	field := []byte{tagType, byte(len(data) >> 5), byte(len(data) & 31)}
	return append(field, data...)
}

const testTimestamp = 1496314658

// buildInvoice 组装完整支付请求：时间戳 + 标签区 + 全零签名块
func buildInvoice(hrp string, tags ...[]byte) string {
	data := writeBigEndian(testTimestamp, timestampSymbols)
	for _, tag := range tags {
		data = append(data, tag...)
	}
	data = append(data, make([]byte, signatureSymbols)...)
	return bech32Encode(hrp, data, 1)
}

// ---------- 金额 ----------

func TestDecodeAmount(t *testing.T) {
	cases := []struct {
		hrp  string
		msat int64
	}{
		{"lnbc25m", 2_500_000_000},
		{"lnbc2500u", 250_000_000},
		{"lnbc1n", 100},
		{"lnbc2500p", 250},
		{"lnbc1", 100_000_000_000},
	}

	for _, c := range cases {
		decoded, err := Decode(buildInvoice(c.hrp))
		require.NoError(t, err, c.hrp)
		require.NotNil(t, decoded.MilliSat, c.hrp)
		assert.Equal(t, c.msat, *decoded.MilliSat, c.hrp)
	}
}

func TestDecodeWithoutAmount(t *testing.T) {
	decoded, err := Decode(buildInvoice("lnbc"))
	require.NoError(t, err)

	// 未填金额是"由付款方决定"，必须是缺失而不是 0
	assert.Nil(t, decoded.MilliSat)
	assert.Equal(t, int64(0), decoded.AmountSats())
	assert.Equal(t, "bc", decoded.Network)
	assert.Equal(t, int64(testTimestamp), decoded.Timestamp.Unix())
}

func TestDecodeAmountErrors(t *testing.T) {
	cases := []struct {
		hrp string
		err error
	}{
		{"lnbc2503p", ErrSubMsatPrecision}, // 250.3 毫聪，精度不足
		{"lnbc100000000", ErrAmountOverflow},
		{"lnbc05m", ErrBadAmount}, // 前导零
		{"lnbcm", ErrBadAmount},   // 只有量级没有数字
	}

	for _, c := range cases {
		_, err := Decode(buildInvoice(c.hrp))
		assert.ErrorIs(t, err, c.err, c.hrp)
	}
}

// ---------- 标签字段 ----------

func TestDecodeDescription(t *testing.T) {
	memo := "三杯咖啡 three coffees"
	invoice := buildInvoice("lnbc25m", tagField(tagDescription, eightToFive([]byte(memo))))

	decoded, err := Decode(invoice)
	require.NoError(t, err)
	require.NotNil(t, decoded.Description)
	assert.Equal(t, memo, *decoded.Description)
}

func TestDecodeDescriptionInvalidUTF8(t *testing.T) {
	invoice := buildInvoice("lnbc25m", tagField(tagDescription, eightToFive([]byte{0xff, 0xfe, 0xfd})))

	_, err := Decode(invoice)
	assert.ErrorIs(t, err, ErrBadDescription)
}

func TestDecodePaymentHash(t *testing.T) {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
	}
	invoice := buildInvoice("lnbc25m", tagField(tagPaymentHash, eightToFive(hash)))

	decoded, err := Decode(invoice)
	require.NoError(t, err)
	assert.Equal(t,
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		decoded.PaymentHash)
}

func TestDecodeExpiry(t *testing.T) {
	invoice := buildInvoice("lnbc25m", tagField(tagExpiry, writeBigEndian(60, 2)))

	decoded, err := Decode(invoice)
	require.NoError(t, err)
	assert.Equal(t, int64(60), decoded.ExpirySeconds)
}

func TestDecodeExpiryTooLong(t *testing.T) {
	// 12 符号（60 比特）是 int64 内的上限，再长一律拒绝而不是回绕成负数
	longest := make([]byte, expiryMaxSymbols)
	for i := range longest {
		longest[i] = 31
	}
	decoded, err := Decode(buildInvoice("lnbc25m", tagField(tagExpiry, longest)))
	require.NoError(t, err)
	assert.Positive(t, decoded.ExpirySeconds)

	overflowing := make([]byte, 20)
	for i := range overflowing {
		overflowing[i] = 31
	}
	_, err = Decode(buildInvoice("lnbc25m", tagField(tagExpiry, overflowing)))
	assert.ErrorIs(t, err, ErrExpiryOverflow)
}

func TestDecodeExpiryDefault(t *testing.T) {
	// 没有 x 标签时必须精确回退到 3600 秒
	decoded, err := Decode(buildInvoice("lnbc25m", tagField(tagDescription, eightToFive([]byte("no expiry here")))))
	require.NoError(t, err)
	assert.Equal(t, int64(3600), decoded.ExpirySeconds)
}

func TestDecodeSkipsUnknownTags(t *testing.T) {
	unknown := tagField(9, []byte{1, 2, 3, 4, 5})
	invoice := buildInvoice("lnbc25m", unknown, tagField(tagExpiry, writeBigEndian(120, 2)))

	decoded, err := Decode(invoice)
	require.NoError(t, err)
	assert.Equal(t, int64(120), decoded.ExpirySeconds)
}

func TestDecodeTagOverruns(t *testing.T) {
	// 长度声明越过签名边界
	overrun := []byte{tagDescription, 3, 4, 1, 1}
	_, err := Decode(buildInvoice("lnbc25m", overrun))
	assert.ErrorIs(t, err, ErrTagTruncated)

	// 标签头本身被截断
	truncated := []byte{tagDescription, 0}
	_, err = Decode(buildInvoice("lnbc25m", truncated))
	assert.ErrorIs(t, err, ErrTagTruncated)
}

func TestDecodePaddingGuard(t *testing.T) {
	// 10 比特凑出 1 字节后残留 2 个非零比特，必须拒绝而非静默截断
	invoice := buildInvoice("lnbc25m", tagField(tagDescription, []byte{0, 1}))
	_, err := Decode(invoice)
	assert.ErrorIs(t, err, ErrBadPadding)
}

// ---------- 输入形态 ----------

func TestDecodeToleratesURIPrefixAndCase(t *testing.T) {
	plain := buildInvoice("lnbc25m")

	decoded, err := Decode("  lightning:" + plain + "\n")
	require.NoError(t, err)
	require.NotNil(t, decoded.MilliSat)
	assert.Equal(t, int64(2_500_000_000), *decoded.MilliSat)

	upper, err := Decode(strings.ToUpper(plain))
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000_000), *upper.MilliSat)
}

func TestDecodeRejectsMixedCase(t *testing.T) {
	plain := buildInvoice("lnbc25m")
	mixed := strings.ToUpper(plain[:10]) + plain[10:]

	_, err := Decode(mixed)
	assert.ErrorIs(t, err, ErrBadCharset)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode("")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode("lightning:  ")
	assert.ErrorIs(t, err, ErrEmpty)

	// 破坏数据区的一个字符
	valid := buildInvoice("lnbc25m")
	corrupted := []byte(valid)
	pos := len(valid) - 10
	if corrupted[pos] == 'q' {
		corrupted[pos] = 'p'
	} else {
		corrupted[pos] = 'q'
	}
	_, err = Decode(string(corrupted))
	assert.ErrorIs(t, err, ErrBadChecksum)

	// 字符集之外的字符
	_, err = Decode(valid[:len(valid)-1] + "b")
	assert.ErrorIs(t, err, ErrBadCharset)
}

func TestDecodeRejectsWrongVariant(t *testing.T) {
	data := writeBigEndian(testTimestamp, timestampSymbols)
	data = append(data, make([]byte, signatureSymbols)...)
	invoice := bech32Encode("lnbc25m", data, bech32mConst)

	_, err := Decode(invoice)
	assert.ErrorIs(t, err, ErrWrongVariant)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	// 数据区不足 时间戳 + 签名 的最小长度
	short := bech32Encode("lnbc25m", make([]byte, timestampSymbols+signatureSymbols-1), 1)
	_, err := Decode(short)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestDecodeRejectsUnknownNetwork(t *testing.T) {
	_, err := Decode(buildInvoice("lnxx25m"))
	assert.ErrorIs(t, err, ErrBadPrefix)

	_, err = Decode(buildInvoice("xn25m"))
	assert.ErrorIs(t, err, ErrBadPrefix)
}
