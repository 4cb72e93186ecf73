package bootstrap

import (
	"context"
	"fmt"
	"time"

	"lnwallet/app/repositories"
	"lnwallet/pkg/config"
	"lnwallet/pkg/eventbus"
	"lnwallet/pkg/lnd"
	"lnwallet/pkg/reconciler"
)

// SetupReconciler 启动发票对账器
// 先同步做一轮全量扫描把存量发票补进数据库，
// 再在后台维持事件流订阅；订阅使用独立的节点客户端，
// 长连接不占用 REST 调用的串行化锁
func SetupReconciler(ctx context.Context) error {
	subscriber, err := newNodeClient("lnd.receive")
	if err != nil {
		return fmt.Errorf("初始化订阅客户端失败: %w", err)
	}
	subscriber.NodeID = lnd.Receive.NodeID

	r := reconciler.New(
		lndSource{rest: lnd.Receive, stream: subscriber},
		repositories.NewTransactionRepository(),
		eventbus.B,
		lnd.Receive.NodeID,
	)
	r.ReconnectDelay = time.Duration(config.GetInt("lnd.reconnect_seconds")) * time.Second

	r.SyncOnce(ctx)
	go r.Run(ctx)

	return nil
}

// lndSource 把 REST 拉取与事件流订阅拆到两个客户端上
type lndSource struct {
	rest   *lnd.Client
	stream *lnd.Client
}

func (s lndSource) ListInvoices(ctx context.Context) ([]lnd.Invoice, error) {
	return s.rest.ListInvoices(ctx)
}

func (s lndSource) SubscribeInvoices(ctx context.Context) (lnd.InvoiceStream, error) {
	return s.stream.SubscribeInvoices(ctx)
}
