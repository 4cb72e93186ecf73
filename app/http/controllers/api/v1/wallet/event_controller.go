package wallet

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"lnwallet/pkg/eventbus"
	"lnwallet/pkg/response"
)

// keepAliveInterval SSE 保活注释帧的发送间隔
const keepAliveInterval = 15 * time.Second

type EventController struct {
}

func NewEventController() *EventController {
	return &EventController{}
}

// Stream 以 SSE 推送交易事件
// 订阅者缓冲满时丢新事件，慢消费端只会漏事件、不会拖垮发布方
func (ec *EventController) Stream(c *gin.Context) {
	if eventbus.B == nil {
		response.Abort500(c, "事件服务未就绪")
		return
	}

	sub := eventbus.B.Subscribe()
	defer eventbus.B.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event.Transaction)
			return true
		case <-keepAlive.C:
			// 注释帧，只为维持连接
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}
