package lnd

import "encoding/hex"

// 发票在节点侧的生命周期状态（REST 接口返回的枚举名）
const (
	StateOpen     = "OPEN"
	StateSettled  = "SETTLED"
	StateCanceled = "CANCELED"
	StateAccepted = "ACCEPTED"
)

// Invoice 节点侧发票
// REST 接口中 64 位整数编码为字符串，字节串编码为 base64
type Invoice struct {
	RHash          []byte `json:"r_hash"`
	PaymentRequest string `json:"payment_request"`
	Memo           string `json:"memo"`
	Value          int64  `json:"value,string"`
	State          string `json:"state"`
	CreationDate   int64  `json:"creation_date,string"`
	Expiry         int64  `json:"expiry,string"`
	SettleDate     int64  `json:"settle_date,string"`
	RPreimage      []byte `json:"r_preimage"`
}

// PaymentHash 支付哈希的 hex 表示
func (i *Invoice) PaymentHash() string {
	return hex.EncodeToString(i.RHash)
}

// PreimageHex 支付原像的 hex 表示
func (i *Invoice) PreimageHex() string {
	return hex.EncodeToString(i.RPreimage)
}

// NodeInfo 节点身份信息
type NodeInfo struct {
	IdentityPubkey string `json:"identity_pubkey"`
	Alias          string `json:"alias"`
	BlockHeight    uint32 `json:"block_height"`
}

// AddInvoiceResponse 开票结果
type AddInvoiceResponse struct {
	RHash          []byte `json:"r_hash"`
	PaymentRequest string `json:"payment_request"`
	AddIndex       uint64 `json:"add_index,string"`
}

// PaymentHash 支付哈希的 hex 表示
func (r *AddInvoiceResponse) PaymentHash() string {
	return hex.EncodeToString(r.RHash)
}

// Route 支付路由摘要
type Route struct {
	TotalFeesMsat int64 `json:"total_fees_msat,string"`
	TotalAmtMsat  int64 `json:"total_amt_msat,string"`
}

// SendResponse 同步支付结果
// PaymentError 非空表示支付失败，其余字段无效
type SendResponse struct {
	PaymentError    string `json:"payment_error"`
	PaymentPreimage []byte `json:"payment_preimage"`
	PaymentHash     []byte `json:"payment_hash"`
	PaymentRoute    *Route `json:"payment_route"`
}

// listInvoicesResponse ListInvoices 的响应体
type listInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// restError 节点 REST 接口的错误响应体
type restError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
