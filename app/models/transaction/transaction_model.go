package transaction

import (
	"time"
)

// Transaction 交易记录模型
// 同时承载本节点开出的发票（invoice）与对外支付（payment），
// 以 (kind, payment_hash) 作为业务主键，只追加、不删除
type Transaction struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind           string     `gorm:"type:varchar(10);uniqueIndex:idx_kind_payment_hash" json:"kind"`
	PaymentHash    string     `gorm:"type:varchar(64);uniqueIndex:idx_kind_payment_hash" json:"payment_hash"`
	PaymentRequest string     `gorm:"type:text" json:"payment_request"`
	AmountSats     int64      `gorm:"" json:"amount_sats"`
	Description    *string    `gorm:"type:text" json:"description"`
	Status         string     `gorm:"type:varchar(20);index" json:"status"`
	Preimage       *string    `gorm:"type:varchar(64)" json:"preimage"`
	FeeSats        *int64     `gorm:"" json:"fee_sats"`
	FailureReason  *string    `gorm:"type:text" json:"failure_reason"`
	ExpiresAt      *time.Time `gorm:"" json:"expires_at"`
	NodeID         string     `gorm:"type:varchar(66);index" json:"node_id"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"" json:"updated_at"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}
