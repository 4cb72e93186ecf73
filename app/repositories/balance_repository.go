package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"lnwallet/app/models/transaction"
)

// BalanceSummary 余额汇总
type BalanceSummary struct {
	ReceivedSats        int64     `json:"received_sats"`
	PaidSats            int64     `json:"paid_sats"`
	PendingReceivedSats int64     `json:"pending_received_sats"`
	PendingPaidSats     int64     `json:"pending_paid_sats"`
	LastUpdated         time.Time `json:"last_updated"`
}

// BalanceSummary 按节点聚合收付金额
// 注意：received 同时统计 pending 与 succeeded 的发票，
// paid 只统计 succeeded 的支付，两侧口径不一致，沿用线上既有行为
func (r *TransactionRepository) BalanceSummary(ctx context.Context, receiveNodeID, sendNodeID string) (*BalanceSummary, error) {
	received, err := r.sumAmount(ctx,
		"node_id = ? AND kind = ? AND status IN ?",
		receiveNodeID, string(transaction.KindInvoice),
		[]string{string(transaction.StatusPending), string(transaction.StatusSucceeded)},
	)
	if err != nil {
		return nil, err
	}

	paid, err := r.sumAmount(ctx,
		"node_id = ? AND kind = ? AND status = ?",
		sendNodeID, string(transaction.KindPayment), string(transaction.StatusSucceeded),
	)
	if err != nil {
		return nil, err
	}

	pendingReceived, err := r.sumAmount(ctx,
		"node_id = ? AND kind = ? AND status = ?",
		receiveNodeID, string(transaction.KindInvoice), string(transaction.StatusPending),
	)
	if err != nil {
		return nil, err
	}

	pendingPaid, err := r.sumAmount(ctx,
		"node_id = ? AND kind = ? AND status = ?",
		sendNodeID, string(transaction.KindPayment), string(transaction.StatusPending),
	)
	if err != nil {
		return nil, err
	}

	lastUpdated, err := r.lastUpdatedAt(ctx, receiveNodeID, sendNodeID)
	if err != nil {
		return nil, err
	}

	return &BalanceSummary{
		ReceivedSats:        received,
		PaidSats:            paid,
		PendingReceivedSats: pendingReceived,
		PendingPaidSats:     pendingPaid,
		LastUpdated:         lastUpdated,
	}, nil
}

// sumAmount 按条件汇总金额，空结果返回 0
func (r *TransactionRepository) sumAmount(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&transaction.Transaction{}).
		Where(query, args...).
		Select("COALESCE(SUM(amount_sats), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// lastUpdatedAt 取两个节点下最近一次更新时间，无记录时取当前时间
// 取最新一行而非 MAX 聚合：聚合列丢失类型声明，sqlite 驱动会按字符串返回
func (r *TransactionRepository) lastUpdatedAt(ctx context.Context, receiveNodeID, sendNodeID string) (time.Time, error) {
	var last transaction.Transaction
	err := r.db.WithContext(ctx).
		Where("node_id IN ?", []string{receiveNodeID, sendNodeID}).
		Order("updated_at DESC").
		Select("updated_at").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Now().UTC(), nil
		}
		return time.Time{}, err
	}
	return last.UpdatedAt, nil
}
