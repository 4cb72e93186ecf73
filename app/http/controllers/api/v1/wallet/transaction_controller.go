package wallet

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"lnwallet/app/repositories"
	"lnwallet/pkg/lnd"
	"lnwallet/pkg/response"
)

// 分页参数边界
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type TransactionController struct {
	repo *repositories.TransactionRepository
}

func NewTransactionController() *TransactionController {
	return &TransactionController{
		repo: repositories.NewTransactionRepository(),
	}
}

// Index 交易列表，按创建时间倒序
func (tc *TransactionController) Index(c *gin.Context) {
	limit := cast.ToInt(c.DefaultQuery("limit", cast.ToString(defaultPageSize)))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := cast.ToInt(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	txs, err := tc.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.ServerError(c, err, "查询交易列表失败")
		return
	}

	response.Data(c, gin.H{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

// Balance 余额汇总
// total 为净待定额：pending_received - pending_paid，沿用线上口径
func (tc *TransactionController) Balance(c *gin.Context) {
	summary, err := tc.repo.BalanceSummary(c.Request.Context(), lnd.Receive.NodeID, lnd.Send.NodeID)
	if err != nil {
		response.ServerError(c, err, "查询余额失败")
		return
	}

	response.Data(c, gin.H{
		"received_sats":         summary.ReceivedSats,
		"paid_sats":             summary.PaidSats,
		"pending_received_sats": summary.PendingReceivedSats,
		"pending_paid_sats":     summary.PendingPaidSats,
		"total_sats":            summary.PendingReceivedSats - summary.PendingPaidSats,
		"last_updated":          summary.LastUpdated,
	})
}
