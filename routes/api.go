package routes

import (
	"lnwallet/app/http/controllers/api/v1/wallet"
	"lnwallet/app/http/middlewares"

	"github.com/gin-gonic/gin"
)

// 路由限流配置
const (
	// 全局限流：每小时每IP 30000 请求
	GlobalRateLimit = "30000-H"
	// 写操作限流（开票、支付）：每小时每IP 300 请求
	WriteRateLimit = "300-H"
	// 查询限流：每分钟每IP 300 请求
	QueryRateLimit = "300-M"
)

// RegisterAPIRoutes 注册所有 API 路由
func RegisterAPIRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")

	v1.Use(
		middlewares.SecurityHeaders(),
		middlewares.LimitIP(GlobalRateLimit),
		middlewares.Cors(),
	)

	// 发票相关路由
	invoiceRoutes := v1.Group("/invoices")
	{
		ic := wallet.NewInvoiceController()

		// 创建发票
		// POST /v1/invoices
		invoiceRoutes.POST("",
			middlewares.LimitIP(WriteRateLimit),
			ic.Store,
		)

		// 查询发票
		// GET /v1/invoices/:hash
		invoiceRoutes.GET("/:hash",
			middlewares.LimitIP(QueryRateLimit),
			ic.Show,
		)

		// 发票付款码
		// GET /v1/invoices/:hash/qr
		invoiceRoutes.GET("/:hash/qr",
			middlewares.LimitIP(QueryRateLimit),
			ic.Qr,
		)
	}

	// 支付相关路由
	paymentRoutes := v1.Group("/payments")
	{
		pc := wallet.NewPaymentController()

		// 发起支付
		// POST /v1/payments
		paymentRoutes.POST("",
			middlewares.LimitIP(WriteRateLimit),
			pc.Store,
		)

		// 查询支付记录
		// GET /v1/payments/:hash
		paymentRoutes.GET("/:hash",
			middlewares.LimitIP(QueryRateLimit),
			pc.Show,
		)
	}

	// 交易与余额
	tc := wallet.NewTransactionController()
	v1.GET("/transactions", middlewares.LimitIP(QueryRateLimit), tc.Index)
	v1.GET("/balance", middlewares.LimitIP(QueryRateLimit), tc.Balance)

	// 事件推送（SSE 长连接，不做单独限流）
	ec := wallet.NewEventController()
	v1.GET("/events", ec.Stream)
}
