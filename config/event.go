package config

import (
	"lnwallet/pkg/config"
)

func init() {
	config.Add("event", func() map[string]interface{} {
		return map[string]interface{}{

			// 每个订阅者的事件缓冲区大小，缓冲满后丢弃新事件而不阻塞发布方
			"buffer_size": config.Env("EVENT_BUFFER_SIZE", 64),
		}
	})
}
