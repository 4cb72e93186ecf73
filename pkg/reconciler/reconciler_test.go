package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lnwallet/app/models/transaction"
	"lnwallet/pkg/eventbus"
	"lnwallet/pkg/lnd"
)

// fakeGate 记录收到的候选并按哈希去重，模拟幂等闸口
type fakeGate struct {
	mu      sync.Mutex
	applied []*transaction.Transaction
	seen    map[string]string
	err     error
}

func newFakeGate() *fakeGate {
	return &fakeGate{seen: map[string]string{}}
}

func (g *fakeGate) Reconcile(ctx context.Context, candidate *transaction.Transaction) (*transaction.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.applied = append(g.applied, candidate)
	if prev, ok := g.seen[candidate.PaymentHash]; ok && prev == candidate.Status {
		return nil, nil
	}
	g.seen[candidate.PaymentHash] = candidate.Status
	return candidate, nil
}

func (g *fakeGate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.applied)
}

// fakeStream 从预置切片依次吐出发票，耗尽后返回 done 错误
type fakeStream struct {
	invoices []lnd.Invoice
	pos      int
	closed   bool
}

var errStreamDone = errors.New("stream done")

func (s *fakeStream) Recv() (*lnd.Invoice, error) {
	if s.pos >= len(s.invoices) {
		return nil, errStreamDone
	}
	invoice := s.invoices[s.pos]
	s.pos++
	return &invoice, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeSource struct {
	mu         sync.Mutex
	listResult []lnd.Invoice
	listErr    error
	listCalls  int
	streams    []*fakeStream
	dialCalls  int
	dialErr    error
}

func (s *fakeSource) ListInvoices(ctx context.Context) ([]lnd.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return s.listResult, s.listErr
}

func (s *fakeSource) SubscribeInvoices(ctx context.Context) (lnd.InvoiceStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialCalls++
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	if len(s.streams) == 0 {
		return &fakeStream{}, nil
	}
	stream := s.streams[0]
	s.streams = s.streams[1:]
	return stream, nil
}

func (s *fakeSource) calls() (list, dial int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls, s.dialCalls
}

func makeInvoice(hash byte, state string, value int64) lnd.Invoice {
	return lnd.Invoice{
		RHash:          []byte{hash},
		PaymentRequest: "lnbcrt1...",
		Value:          value,
		State:          state,
		CreationDate:   1700000000,
		Expiry:         3600,
	}
}

func TestSyncOnceAppliesAllInvoices(t *testing.T) {
	source := &fakeSource{listResult: []lnd.Invoice{
		makeInvoice(1, lnd.StateOpen, 100),
		makeInvoice(2, lnd.StateSettled, 200),
		makeInvoice(3, lnd.StateCanceled, 300),
	}}
	gate := newFakeGate()

	r := New(source, gate, nil, "node-a")
	r.SyncOnce(context.Background())

	require.Equal(t, 3, gate.count())
	assert.Equal(t, string(transaction.StatusPending), gate.applied[0].Status)
	assert.Equal(t, string(transaction.StatusSucceeded), gate.applied[1].Status)
	assert.Equal(t, string(transaction.StatusExpired), gate.applied[2].Status)
	for _, candidate := range gate.applied {
		assert.Equal(t, string(transaction.KindInvoice), candidate.Kind)
		assert.Equal(t, "node-a", candidate.NodeID)
	}
}

func TestSyncOnceSwallowsListFailure(t *testing.T) {
	source := &fakeSource{listErr: errors.New("connection refused")}
	gate := newFakeGate()

	r := New(source, gate, nil, "node-a")

	assert.NotPanics(t, func() {
		r.SyncOnce(context.Background())
	})
	assert.Equal(t, 0, gate.count())
}

func TestSyncOnceContinuesAfterGateError(t *testing.T) {
	source := &fakeSource{listResult: []lnd.Invoice{
		makeInvoice(1, lnd.StateOpen, 100),
		makeInvoice(2, lnd.StateOpen, 200),
	}}
	gate := newFakeGate()
	gate.err = errors.New("db locked")

	r := New(source, gate, nil, "node-a")
	assert.NotPanics(t, func() {
		r.SyncOnce(context.Background())
	})
}

func TestRunConsumesStreamAndReconnects(t *testing.T) {
	source := &fakeSource{
		streams: []*fakeStream{
			{invoices: []lnd.Invoice{makeInvoice(1, lnd.StateOpen, 100)}},
			{invoices: []lnd.Invoice{makeInvoice(1, lnd.StateSettled, 100)}},
		},
	}
	gate := newFakeGate()

	r := New(source, gate, nil, "node-a")
	r.ReconnectDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return gate.count() >= 2
	}, time.Second, 5*time.Millisecond)

	_, dial := source.calls()
	assert.GreaterOrEqual(t, dial, 2)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run 未在取消后返回")
	}
}

func TestRunResyncsAfterReconnect(t *testing.T) {
	source := &fakeSource{
		listResult: []lnd.Invoice{makeInvoice(9, lnd.StateOpen, 50)},
	}
	gate := newFakeGate()

	r := New(source, gate, nil, "node-a")
	r.ReconnectDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// 每次重连后都应补一轮全量扫描
	assert.Eventually(t, func() bool {
		list, _ := source.calls()
		return list >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestRunKeepsRetryingWhenDialFails(t *testing.T) {
	source := &fakeSource{dialErr: errors.New("connection refused")}
	gate := newFakeGate()

	r := New(source, gate, nil, "node-a")
	r.ReconnectDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	assert.Eventually(t, func() bool {
		_, dial := source.calls()
		return dial >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestApplyPublishesEventOnChange(t *testing.T) {
	bus := eventbus.NewBus(8)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	gate := newFakeGate()
	r := New(&fakeSource{}, gate, bus, "node-a")

	invoice := makeInvoice(7, lnd.StateSettled, 42)
	result, err := r.apply(context.Background(), &invoice)
	require.NoError(t, err)
	require.NotNil(t, result)

	select {
	case event := <-sub.C:
		assert.Equal(t, eventbus.EventInvoiceSettled, event.Type)
		assert.Equal(t, result.PaymentHash, event.Transaction.PaymentHash)
	case <-time.After(time.Second):
		t.Fatal("未收到广播事件")
	}

	// 重复投递同一状态不产生变更，也不广播
	result, err = r.apply(context.Background(), &invoice)
	require.NoError(t, err)
	assert.Nil(t, result)
	select {
	case event := <-sub.C:
		t.Fatalf("不应再次广播: %v", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCandidateFromInvoice(t *testing.T) {
	invoice := lnd.Invoice{
		RHash:          []byte{0xab, 0xcd},
		PaymentRequest: "lnbcrt420n1...",
		Memo:           "coffee",
		Value:          42,
		State:          lnd.StateSettled,
		CreationDate:   1700000000,
		Expiry:         600,
		RPreimage:      []byte{0x01, 0x02},
	}

	candidate := candidateFromInvoice(&invoice, "node-a")

	assert.Equal(t, "abcd", candidate.PaymentHash)
	assert.Equal(t, string(transaction.StatusSucceeded), candidate.Status)
	require.NotNil(t, candidate.Description)
	assert.Equal(t, "coffee", *candidate.Description)
	require.NotNil(t, candidate.ExpiresAt)
	assert.Equal(t, time.Unix(1700000600, 0).UTC(), *candidate.ExpiresAt)
	require.NotNil(t, candidate.Preimage)
	assert.Equal(t, "0102", *candidate.Preimage)
}

func TestCandidateFromInvoiceOmitsEmptyFields(t *testing.T) {
	invoice := lnd.Invoice{
		RHash: []byte{0x01},
		Value: 10,
		State: lnd.StateOpen,
	}

	candidate := candidateFromInvoice(&invoice, "node-a")

	assert.Nil(t, candidate.Description)
	assert.Nil(t, candidate.ExpiresAt)
	assert.Nil(t, candidate.Preimage)
	assert.Equal(t, string(transaction.StatusPending), candidate.Status)
}

func TestMapStateUnknownDefaultsToPending(t *testing.T) {
	assert.Equal(t, transaction.StatusPending, mapState("SOMETHING_NEW"))
}
