package config

import (
	"lnwallet/pkg/config"
)

func init() {
	config.Add("lnd", func() map[string]interface{} {
		return map[string]interface{}{

			// 收款节点：开票与发票订阅使用此节点
			"receive": map[string]interface{}{
				"host":          config.Env("LND_HOST", "127.0.0.1:8080"),
				"cert_path":     config.Env("LND_CERT_PATH", "~/.lnd/tls.cert"),
				"macaroon_path": config.Env("LND_MACAROON_PATH", "~/.lnd/admin.macaroon"),
			},

			// 付款节点：解码与支付使用此节点
			"send": map[string]interface{}{
				"host":          config.Env("LND_SEND_HOST", "127.0.0.1:8081"),
				"cert_path":     config.Env("LND_SEND_CERT_PATH", "~/.lnd-send/tls.cert"),
				"macaroon_path": config.Env("LND_SEND_MACAROON_PATH", "~/.lnd-send/admin.macaroon"),
			},

			// 对节点 REST 接口的限流（每秒请求数）与突发量
			"rate_limit": config.Env("LND_RATE_LIMIT", 50),
			"rate_burst": config.Env("LND_RATE_BURST", 10),

			// 发票订阅断流后的重连间隔，单位：秒
			"reconnect_seconds": config.Env("LND_RECONNECT_SECONDS", 5),

			// 创建发票的默认过期时间，单位：秒
			"invoice_expiry": config.Env("LND_INVOICE_EXPIRY", 3600),

			// 支付手续费上限（按金额百分比）
			"fee_limit_percent": config.Env("LND_FEE_LIMIT_PERCENT", 5),
		}
	})
}
