// Package reconciler 负责把节点发票状态对齐到本地数据库
//
// 启动时全量扫描一次，随后通过事件流持续跟进。事件流断开后
// 固定间隔重连，并在每次重连成功后重新全量扫描一遍，
// 补上断线期间漏掉的变更。
package reconciler

import (
	"context"
	"time"

	"lnwallet/app/models/transaction"
	"lnwallet/pkg/eventbus"
	"lnwallet/pkg/lnd"
	"lnwallet/pkg/logger"
)

// Gate 幂等写入闸口，重复投递同一条记录不会产生重复行
type Gate interface {
	// Reconcile 按候选记录对齐数据库，返回非 nil 表示本次产生了变更
	Reconcile(ctx context.Context, candidate *transaction.Transaction) (*transaction.Transaction, error)
}

// Source 发票数据来源
type Source interface {
	ListInvoices(ctx context.Context) ([]lnd.Invoice, error)
	SubscribeInvoices(ctx context.Context) (lnd.InvoiceStream, error)
}

// Reconciler 节点状态对齐器
type Reconciler struct {
	source Source
	gate   Gate
	bus    *eventbus.Bus
	nodeID string

	// 重连间隔，零值取 5 秒
	ReconnectDelay time.Duration
}

// New 创建对齐器
func New(source Source, gate Gate, bus *eventbus.Bus, nodeID string) *Reconciler {
	return &Reconciler{
		source: source,
		gate:   gate,
		bus:    bus,
		nodeID: nodeID,
	}
}

// SyncOnce 全量扫描一次节点发票并逐条对齐
// 拉取失败不视为致命错误，记录日志后返回，等待下一轮
func (r *Reconciler) SyncOnce(ctx context.Context) {
	invoices, err := r.source.ListInvoices(ctx)
	if err != nil {
		logger.ErrorString("Reconciler", "SyncOnce", "拉取发票列表失败: "+err.Error())
		return
	}

	var changed, unchanged int
	for i := range invoices {
		result, err := r.apply(ctx, &invoices[i])
		if err != nil {
			logger.ErrorString("Reconciler", "SyncOnce", "对齐发票失败: "+err.Error())
			continue
		}
		if result != nil {
			changed++
		} else {
			unchanged++
		}
	}

	logger.InfoJSON("Reconciler", "SyncOnce", map[string]int{
		"total":     len(invoices),
		"changed":   changed,
		"unchanged": unchanged,
	})
}

// Run 持续订阅发票事件流，断开后固定间隔无限重连
// 仅在 ctx 取消时返回
func (r *Reconciler) Run(ctx context.Context) {
	delay := r.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	for {
		if err := r.consume(ctx); err != nil {
			logger.WarnString("Reconciler", "Run", "发票事件流中断: "+err.Error())
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		// 重连后先补一轮全量扫描，覆盖断线窗口
		r.SyncOnce(ctx)
	}
}

// consume 打开事件流并消费到断开为止
func (r *Reconciler) consume(ctx context.Context) error {
	stream, err := r.source.SubscribeInvoices(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	logger.InfoString("Reconciler", "consume", "发票事件流已建立")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		invoice, err := stream.Recv()
		if err != nil {
			return err
		}

		if _, err := r.apply(ctx, invoice); err != nil {
			// 单条对齐失败不终止事件流
			logger.ErrorString("Reconciler", "consume", "对齐发票失败: "+err.Error())
		}
	}
}

// apply 把一张节点发票换算成候选记录并写入闸口
// 返回非 nil 表示产生了变更，此时向事件总线广播
func (r *Reconciler) apply(ctx context.Context, invoice *lnd.Invoice) (*transaction.Transaction, error) {
	candidate := candidateFromInvoice(invoice, r.nodeID)

	result, err := r.gate.Reconcile(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	if r.bus != nil {
		r.bus.Publish(eventbus.Event{
			Type:        eventTypeFor(transaction.Status(result.Status)),
			Transaction: *result,
		})
	}
	return result, nil
}

// mapState 节点发票状态到本地状态的映射
// 未知状态按 pending 处理，等待后续事件修正
func mapState(state string) transaction.Status {
	switch state {
	case lnd.StateSettled:
		return transaction.StatusSucceeded
	case lnd.StateCanceled:
		return transaction.StatusExpired
	case lnd.StateOpen, lnd.StateAccepted:
		return transaction.StatusPending
	default:
		return transaction.StatusPending
	}
}

// eventTypeFor 按落库后的状态选择广播事件类型
func eventTypeFor(status transaction.Status) eventbus.EventType {
	switch status {
	case transaction.StatusSucceeded:
		return eventbus.EventInvoiceSettled
	case transaction.StatusExpired:
		return eventbus.EventInvoiceExpired
	default:
		return eventbus.EventInvoiceCreated
	}
}

// candidateFromInvoice 把节点发票换算为本地候选记录
func candidateFromInvoice(invoice *lnd.Invoice, nodeID string) *transaction.Transaction {
	candidate := &transaction.Transaction{
		Kind:           string(transaction.KindInvoice),
		PaymentHash:    invoice.PaymentHash(),
		PaymentRequest: invoice.PaymentRequest,
		AmountSats:     invoice.Value,
		Status:         string(mapState(invoice.State)),
		NodeID:         nodeID,
	}

	if invoice.Memo != "" {
		memo := invoice.Memo
		candidate.Description = &memo
	}

	if invoice.CreationDate > 0 && invoice.Expiry > 0 {
		expiresAt := time.Unix(invoice.CreationDate+invoice.Expiry, 0).UTC()
		candidate.ExpiresAt = &expiresAt
	}

	if invoice.State == lnd.StateSettled && len(invoice.RPreimage) > 0 {
		preimage := invoice.PreimageHex()
		candidate.Preimage = &preimage
	}

	return candidate
}
