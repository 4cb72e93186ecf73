// Package wallet 钱包相关控制器
package wallet

import (
	"strings"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"lnwallet/app/models/transaction"
	"lnwallet/app/repositories"
	"lnwallet/app/requests"
	"lnwallet/pkg/config"
	"lnwallet/pkg/lnd"
	"lnwallet/pkg/response"
)

type InvoiceController struct {
	repo *repositories.TransactionRepository
}

func NewInvoiceController() *InvoiceController {
	return &InvoiceController{
		repo: repositories.NewTransactionRepository(),
	}
}

// Store 创建发票
// 只在节点侧开票并立即返回，本地记录由对账器异步落库：
// 节点是发票状态的唯一事实来源，避免双写不一致
func (ic *InvoiceController) Store(c *gin.Context) {
	request, err := requests.ValidateInvoiceStore(c)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	expiry := request.ExpirySeconds
	if expiry <= 0 {
		expiry = config.GetInt64("lnd.invoice_expiry")
	}

	resp, err := lnd.Receive.AddInvoice(c.Request.Context(), request.AmountSats, request.Description, expiry)
	if err != nil {
		response.ServerError(c, err, "开票失败")
		return
	}

	response.Created(c, gin.H{
		"payment_hash":    resp.PaymentHash(),
		"payment_request": resp.PaymentRequest,
		"amount_sats":     request.AmountSats,
		"expiry_seconds":  expiry,
	})
}

// Show 按支付哈希查询发票
func (ic *InvoiceController) Show(c *gin.Context) {
	paymentHash := strings.ToLower(c.Param("hash"))
	if paymentHash == "" {
		response.Abort400(c, "缺少支付哈希")
		return
	}

	tx, err := ic.repo.GetByHash(c.Request.Context(), transaction.KindInvoice, paymentHash)
	if err != nil {
		response.ServerError(c, err, "查询发票失败")
		return
	}
	if tx == nil {
		response.Abort404(c, "发票不存在")
		return
	}

	response.Data(c, tx)
}

// Qr 发票付款码，返回 PNG 图片
func (ic *InvoiceController) Qr(c *gin.Context) {
	paymentHash := strings.ToLower(c.Param("hash"))
	if paymentHash == "" {
		response.Abort400(c, "缺少支付哈希")
		return
	}

	tx, err := ic.repo.GetByHash(c.Request.Context(), transaction.KindInvoice, paymentHash)
	if err != nil {
		response.ServerError(c, err, "查询发票失败")
		return
	}
	if tx == nil {
		response.Abort404(c, "发票不存在")
		return
	}

	// 统一大写编码可让二维码落入更紧凑的字符集
	png, err := qrcode.Encode("lightning:"+strings.ToUpper(tx.PaymentRequest), qrcode.Medium, 256)
	if err != nil {
		response.ServerError(c, err, "生成付款码失败")
		return
	}

	c.Data(200, "image/png", png)
}
