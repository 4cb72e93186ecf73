package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lnwallet/app/models/transaction"
)

// newTestRepository 内存 sqlite 上的仓库，每个测试独立建库
func newTestRepository(t *testing.T) *TransactionRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 独立内存库只能通过同一连接访问
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&transaction.Transaction{}))

	return &TransactionRepository{db: db}
}

func makeInvoiceTx(hash string, status transaction.Status) *transaction.Transaction {
	return &transaction.Transaction{
		Kind:           string(transaction.KindInvoice),
		PaymentHash:    hash,
		PaymentRequest: "lnbcrt1...",
		AmountSats:     100,
		Status:         string(status),
		NodeID:         "node-a",
	}
}

func TestInsertAndGetByHash(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx := makeInvoiceTx("aa01", transaction.StatusPending)
	require.NoError(t, repo.Insert(ctx, tx))

	got, err := repo.GetByHash(ctx, transaction.KindInvoice, "aa01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "aa01", got.PaymentHash)
	assert.Equal(t, string(transaction.StatusPending), got.Status)

	missing, err := repo.GetByHash(ctx, transaction.KindInvoice, "ffff")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertDuplicateReturnsAlreadyExists(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeInvoiceTx("aa01", transaction.StatusPending)))

	err := repo.Insert(ctx, makeInvoiceTx("aa01", transaction.StatusSucceeded))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSameHashDifferentKindCoexist(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeInvoiceTx("aa01", transaction.StatusPending)))

	payment := makeInvoiceTx("aa01", transaction.StatusPending)
	payment.Kind = string(transaction.KindPayment)
	require.NoError(t, repo.Insert(ctx, payment))
}

func TestConditionalUpdateStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeInvoiceTx("aa01", transaction.StatusPending)))

	preimage := "00ff"
	updated, ok, err := repo.ConditionalUpdateStatus(
		ctx, transaction.KindInvoice, "aa01",
		transaction.StatusSucceeded,
		StatusUpdate{Preimage: &preimage},
	)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, string(transaction.StatusSucceeded), updated.Status)
	require.NotNil(t, updated.Preimage)
	assert.Equal(t, "00ff", *updated.Preimage)
}

func TestConditionalUpdateNoMatchOnMissingKey(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	updated, ok, err := repo.ConditionalUpdateStatus(
		ctx, transaction.KindInvoice, "ffff",
		transaction.StatusSucceeded, StatusUpdate{},
	)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, updated)
}

func TestConditionalUpdateSkipsSameStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeInvoiceTx("aa01", transaction.StatusPending)))

	_, ok, err := repo.ConditionalUpdateStatus(
		ctx, transaction.KindInvoice, "aa01",
		transaction.StatusPending, StatusUpdate{},
	)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTerminalStatusIsImmutable(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeInvoiceTx("aa01", transaction.StatusSucceeded)))

	// 终态记录不接受任何状态变更，包括换一个终态
	for _, target := range []transaction.Status{
		transaction.StatusPending,
		transaction.StatusFailed,
		transaction.StatusExpired,
	} {
		_, ok, err := repo.ConditionalUpdateStatus(
			ctx, transaction.KindInvoice, "aa01", target, StatusUpdate{},
		)
		require.NoError(t, err)
		assert.False(t, ok, "终态不应被改为 %s", target)
	}

	got, err := repo.GetByHash(ctx, transaction.KindInvoice, "aa01")
	require.NoError(t, err)
	assert.Equal(t, string(transaction.StatusSucceeded), got.Status)
}

func TestReconcileInsertsNewRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	result, err := repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusPending))
	require.NoError(t, err)
	require.NotNil(t, result)

	got, err := repo.GetByHash(ctx, transaction.KindInvoice, "aa01")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusPending))
	require.NoError(t, err)
	require.NotNil(t, first)

	// 同一候选重复投递：无变化，不产生第二行
	second, err := repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusPending))
	require.NoError(t, err)
	assert.Nil(t, second)

	txs, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestReconcileLosesInsertRace(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// 在存在性检查之后、插入之前，用回调抢先写入同一业务主键，
	// 复现全量同步与实时订阅并发首見同一发票的竞争
	raced := false
	err := repo.db.Callback().Create().Before("gorm:create").Register("race_insert", func(db *gorm.DB) {
		if raced {
			return
		}
		raced = true
		rival := makeInvoiceTx("aa01", transaction.StatusPending)
		require.NoError(t, repo.db.Session(&gorm.Session{NewDB: true}).Create(rival).Error)
	})
	require.NoError(t, err)

	// 输掉插入竞争按无变化处理，不报错
	result, err := repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusPending))
	require.NoError(t, err)
	assert.Nil(t, result)

	txs, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestReconcileAdvancesStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusPending))
	require.NoError(t, err)

	result, err := repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusSucceeded))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, string(transaction.StatusSucceeded), result.Status)

	// 结算后再收到过期事件，终态保持不变
	result, err = repo.Reconcile(ctx, makeInvoiceTx("aa01", transaction.StatusExpired))
	require.NoError(t, err)
	assert.Nil(t, result)

	got, err := repo.GetByHash(ctx, transaction.KindInvoice, "aa01")
	require.NoError(t, err)
	assert.Equal(t, string(transaction.StatusSucceeded), got.Status)
}

func TestListOrdersByCreatedAtDesc(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	older := makeInvoiceTx("aa01", transaction.StatusPending)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, older))

	newer := makeInvoiceTx("aa02", transaction.StatusPending)
	newer.CreatedAt = time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newer))

	txs, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "aa02", txs[0].PaymentHash)
	assert.Equal(t, "aa01", txs[1].PaymentHash)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "aa01", page[0].PaymentHash)
}

func TestBalanceSummary(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed := func(kind transaction.Kind, hash, nodeID string, amount int64, status transaction.Status) {
		tx := &transaction.Transaction{
			Kind:           string(kind),
			PaymentHash:    hash,
			PaymentRequest: "lnbcrt1...",
			AmountSats:     amount,
			Status:         string(status),
			NodeID:         nodeID,
		}
		require.NoError(t, repo.Insert(ctx, tx))
	}

	seed(transaction.KindInvoice, "i1", "node-a", 100, transaction.StatusSucceeded)
	seed(transaction.KindInvoice, "i2", "node-a", 50, transaction.StatusPending)
	seed(transaction.KindInvoice, "i3", "node-a", 7, transaction.StatusExpired)
	seed(transaction.KindPayment, "p1", "node-b", 30, transaction.StatusSucceeded)
	seed(transaction.KindPayment, "p2", "node-b", 20, transaction.StatusPending)
	seed(transaction.KindPayment, "p3", "node-b", 5, transaction.StatusFailed)

	summary, err := repo.BalanceSummary(ctx, "node-a", "node-b")
	require.NoError(t, err)

	// received 计入 pending，paid 只计 succeeded，两侧口径一致性见仓库注释
	assert.Equal(t, int64(150), summary.ReceivedSats)
	assert.Equal(t, int64(30), summary.PaidSats)
	assert.Equal(t, int64(50), summary.PendingReceivedSats)
	assert.Equal(t, int64(20), summary.PendingPaidSats)
	assert.False(t, summary.LastUpdated.IsZero())
}

func TestBalanceSummaryEmptyDatabase(t *testing.T) {
	repo := newTestRepository(t)

	summary, err := repo.BalanceSummary(context.Background(), "node-a", "node-b")
	require.NoError(t, err)
	assert.Zero(t, summary.ReceivedSats)
	assert.Zero(t, summary.PaidSats)
	assert.False(t, summary.LastUpdated.IsZero())
}
