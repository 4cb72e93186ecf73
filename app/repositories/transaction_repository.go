// Package repositories 数据访问层
package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"lnwallet/app/models/transaction"
	"lnwallet/pkg/database"
)

// ErrAlreadyExists 记录已存在（唯一索引冲突）
var ErrAlreadyExists = errors.New("transaction already exists")

// terminalStatuses 终态集合，进入终态后状态不再变更
var terminalStatuses = []string{
	string(transaction.StatusSucceeded),
	string(transaction.StatusFailed),
	string(transaction.StatusExpired),
}

// StatusUpdate 状态变更时一并写入的结算字段
type StatusUpdate struct {
	Preimage      *string
	FeeSats       *int64
	FailureReason *string
}

// TransactionRepository 交易记录仓库
// 所有对 transactions 表的写入都经由本仓库，Reconcile 是唯一的对账写入口
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建仓库实例
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		db: database.DB,
	}
}

// Insert 插入交易记录
// (kind, payment_hash) 冲突时返回 ErrAlreadyExists，
// 依赖唯一索引而非先查后插，保证并发安全
func (r *TransactionRepository) Insert(ctx context.Context, tx *transaction.Transaction) error {
	err := r.db.WithContext(ctx).Create(tx).Error
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ConditionalUpdateStatus 条件更新状态
// 仅当存量状态与目标状态不同、且存量状态不是终态时更新，
// 返回更新后的记录；未命中（包括记录不存在）时返回 (nil, false, nil)
func (r *TransactionRepository) ConditionalUpdateStatus(
	ctx context.Context,
	kind transaction.Kind,
	paymentHash string,
	status transaction.Status,
	fields StatusUpdate,
) (*transaction.Transaction, bool, error) {

	updates := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}
	if fields.Preimage != nil {
		updates["preimage"] = *fields.Preimage
	}
	if fields.FeeSats != nil {
		updates["fee_sats"] = *fields.FeeSats
	}
	if fields.FailureReason != nil {
		updates["failure_reason"] = *fields.FailureReason
	}

	result := r.db.WithContext(ctx).
		Model(&transaction.Transaction{}).
		Where("kind = ? AND payment_hash = ?", string(kind), paymentHash).
		Where("status <> ?", string(status)).
		Where("status NOT IN ?", terminalStatuses).
		Updates(updates)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}

	updated, err := r.GetByHash(ctx, kind, paymentHash)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// GetByHash 按 (kind, payment_hash) 查询，不存在时返回 (nil, nil)
func (r *TransactionRepository) GetByHash(ctx context.Context, kind transaction.Kind, paymentHash string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.db.WithContext(ctx).
		Where("kind = ? AND payment_hash = ?", string(kind), paymentHash).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// List 按创建时间倒序分页查询
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]transaction.Transaction, error) {
	var txs []transaction.Transaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// Reconcile 对账写入口：外部观测到的状态经此进入存储
// 返回值非 nil 表示本次调用产生了可观测的变化；nil 表示已是最新（幂等空操作）
//
// 三步流程，容忍全量同步与实时订阅对同一 hash 的并发竞争：
//  1. 条件更新：存量状态不同则更新并返回
//  2. 记录已存在（状态相同）则无变化
//  3. 插入；唯一索引冲突说明竞争对方已插入，按无变化处理
func (r *TransactionRepository) Reconcile(ctx context.Context, candidate *transaction.Transaction) (*transaction.Transaction, error) {
	updated, ok, err := r.ConditionalUpdateStatus(
		ctx,
		transaction.Kind(candidate.Kind),
		candidate.PaymentHash,
		transaction.Status(candidate.Status),
		StatusUpdate{},
	)
	if err != nil {
		return nil, err
	}
	if ok {
		return updated, nil
	}

	existing, err := r.GetByHash(ctx, transaction.Kind(candidate.Kind), candidate.PaymentHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	if err := r.Insert(ctx, candidate); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// 步骤 2 和 3 之间被并发插入，不是错误
			return nil, nil
		}
		return nil, err
	}
	return candidate, nil
}

// isDuplicateKeyError 判断是否为唯一索引冲突
// GORM 的 TranslateError 覆盖 postgres 与 sqlite，字符串匹配兜底
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key")
}
