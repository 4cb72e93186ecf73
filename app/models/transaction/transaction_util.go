package transaction

// Kind 交易类型
type Kind string

const (
	KindInvoice Kind = "invoice" // 本节点开出的发票
	KindPayment Kind = "payment" // 对外发起的支付
)

// Status 交易状态
// 状态机：pending 为唯一的非终态，进入终态后不再变更
//
//	pending -> succeeded （终态）
//	pending -> failed    （终态，仅 payment）
//	pending -> expired   （终态，仅 invoice）
type Status string

const (
	StatusPending   Status = "pending"   // 等待结算
	StatusSucceeded Status = "succeeded" // 已结算
	StatusFailed    Status = "failed"    // 支付失败
	StatusExpired   Status = "expired"   // 发票过期
)

// IsTerminal 判断状态是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusExpired
}

// ValidKind 校验交易类型取值
func ValidKind(kind string) bool {
	return kind == string(KindInvoice) || kind == string(KindPayment)
}

// IsSuccess 检查交易是否已结算
func (t *Transaction) IsSuccess() bool {
	return t.Status == string(StatusSucceeded)
}

// IsPending 检查交易是否处于等待状态
func (t *Transaction) IsPending() bool {
	return t.Status == string(StatusPending)
}

// IsInvoice 检查记录是否为发票
func (t *Transaction) IsInvoice() bool {
	return t.Kind == string(KindInvoice)
}
