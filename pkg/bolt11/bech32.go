package bolt11

import "strings"

// bech32 字符集，下标即 5 比特符号值
const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// bech32m 变体的校验和常量，BOLT11 只允许经典 bech32（常量 1）
const bech32mConst = 0x2bc830a3

// charsetRev 字符到符号值的反查表，-1 表示不在字符集内
var charsetRev [128]int8

func init() {
	for i := range charsetRev {
		charsetRev[i] = -1
	}
	for i := 0; i < len(charset); i++ {
		charsetRev[charset[i]] = int8(i)
	}
}

// polymod BIP-173 多项式校验
func polymod(values []byte) uint32 {
	gen := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

// hrpExpand 展开可读前缀参与校验和计算
func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&0x1f)
	}
	return out
}

// decodeBech32 拆出可读前缀与 5 比特数据段（已去掉 6 符号校验和）
// BOLT11 的编码长度不设 90 字符上限
func decodeBech32(bech string) (string, []byte, error) {
	pos := strings.LastIndexByte(bech, '1')
	if pos < 1 || pos+7 > len(bech) {
		return "", nil, ErrBadChecksum
	}

	hrp := bech[:pos]
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", nil, ErrBadCharset
		}
	}

	data := make([]byte, 0, len(bech)-pos-1)
	for i := pos + 1; i < len(bech); i++ {
		c := bech[i]
		if c >= 128 || charsetRev[c] == -1 {
			return "", nil, ErrBadCharset
		}
		data = append(data, byte(charsetRev[c]))
	}

	switch polymod(append(hrpExpand(hrp), data...)) {
	case 1:
		// 经典 bech32
	case bech32mConst:
		return "", nil, ErrWrongVariant
	default:
		return "", nil, ErrBadChecksum
	}

	return hrp, data[:len(data)-6], nil
}

// fiveToEight 把 5 比特符号序列重组为字节序列
// 逐符号高位在前累积，凑满 8 比特即输出；
// 结束后残留的填充位必须全为零，否则视为编码损坏
func fiveToEight(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*5/8)
	var acc uint32
	var bits uint
	for _, v := range data {
		acc = acc<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
	}
	if bits >= 5 || acc&((1<<bits)-1) != 0 {
		return nil, ErrBadPadding
	}
	return out, nil
}
