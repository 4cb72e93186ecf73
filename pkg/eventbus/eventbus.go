// Package eventbus 进程内事件广播
//
// 对账循环与支付路径在状态真正变化时发布事件，
// SSE 等展示层各自订阅。总线随进程启动创建、随进程退出消亡，无需回收。
package eventbus

import (
	"sync"
	"sync/atomic"

	"lnwallet/app/models/transaction"
	"lnwallet/pkg/logger"
)

// EventType 事件类型
type EventType string

const (
	EventInvoiceCreated   EventType = "invoice_created"
	EventInvoiceSettled   EventType = "invoice_settled"
	EventInvoiceExpired   EventType = "invoice_expired"
	EventPaymentSucceeded EventType = "payment_succeeded"
)

// Event 变更通知，携带变更时刻的完整交易快照
type Event struct {
	Type        EventType               `json:"type"`
	Transaction transaction.Transaction `json:"transaction"`
}

// Subscriber 订阅者
// C 上只会收到订阅之后发布的事件；缓冲满时事件被丢弃（可从 Dropped 观测），
// 慢消费者只会看到事件缺口，不会拖慢发布方
type Subscriber struct {
	C       <-chan Event
	ch      chan Event
	dropped atomic.Int64
}

// Dropped 因缓冲满而被丢弃的事件数
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Bus 多订阅者事件总线
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	bufferSize  int
}

// 全局总线实例，bootstrap.SetupEventBus 中初始化
var B *Bus

// InitBus 初始化全局总线
func InitBus(bufferSize int) {
	B = NewBus(bufferSize)
}

// NewBus 创建总线，bufferSize 为每个订阅者的缓冲大小
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[*Subscriber]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe 新增订阅者，历史事件不回放
func (b *Bus) Subscribe() *Subscriber {
	ch := make(chan Event, b.bufferSize)
	sub := &Subscriber{C: ch, ch: ch}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe 移除订阅者并关闭其通道
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub.ch)
	}
	b.mu.Unlock()
}

// Publish 向当前所有订阅者广播
// 没有订阅者时为空操作；任何订阅者缓冲已满时对其丢弃本事件，发布方从不阻塞
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
			logger.WarnString("EventBus", "Publish",
				"订阅者缓冲已满，事件被丢弃: "+string(event.Type))
		}
	}
}

// SubscriberCount 当前订阅者数量
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
