package bootstrap

import (
	"lnwallet/pkg/config"
	"lnwallet/pkg/eventbus"
)

// SetupEventBus 初始化事件总线
func SetupEventBus() {
	eventbus.InitBus(config.GetInt("event.buffer_size"))
}
