package migrations

import (
	"lnwallet/app/models/transaction"
)

// RegisterTables 返回需要迁移的表的模型列表
func RegisterTables() []interface{} {
	return []interface{}{
		&transaction.Transaction{},
	}
}
