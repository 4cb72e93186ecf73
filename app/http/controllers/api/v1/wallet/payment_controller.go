package wallet

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lnwallet/app/models/transaction"
	"lnwallet/app/repositories"
	"lnwallet/app/requests"
	"lnwallet/pkg/bolt11"
	"lnwallet/pkg/config"
	"lnwallet/pkg/eventbus"
	"lnwallet/pkg/lnd"
	"lnwallet/pkg/logger"
	"lnwallet/pkg/response"
)

type PaymentController struct {
	repo *repositories.TransactionRepository
}

func NewPaymentController() *PaymentController {
	return &PaymentController{
		repo: repositories.NewTransactionRepository(),
	}
}

// Store 支付一张发票
//
// 流程：本地解码 -> 去重 -> 落 pending 记录 -> 同步支付 -> 按结果收敛状态。
// 解码在本地完成，不经过节点；同一支付哈希只允许发起一次。
func (pc *PaymentController) Store(c *gin.Context) {
	request, err := requests.ValidatePaymentStore(c)
	if err != nil {
		response.BadRequest(c, err, "请求参数验证失败")
		return
	}

	decoded, err := bolt11.Decode(request.PaymentRequest)
	if err != nil {
		response.BadRequest(c, err, "支付请求解码失败")
		return
	}
	if decoded.PaymentHash == "" {
		response.Abort400(c, "支付请求缺少支付哈希")
		return
	}
	if decoded.MilliSat == nil {
		response.Abort400(c, "不支持未填金额的支付请求")
		return
	}

	ctx := c.Request.Context()

	// 同一张发票只允许付一次，已有记录直接拒绝
	existing, err := pc.repo.GetByHash(ctx, transaction.KindPayment, decoded.PaymentHash)
	if err != nil {
		response.ServerError(c, err, "查询支付记录失败")
		return
	}
	if existing != nil {
		response.Abort400(c, "该支付请求已发起过支付")
		return
	}

	tx := &transaction.Transaction{
		Kind:           string(transaction.KindPayment),
		PaymentHash:    decoded.PaymentHash,
		PaymentRequest: strings.ToLower(strings.TrimSpace(request.PaymentRequest)),
		AmountSats:     decoded.AmountSats(),
		Description:    decoded.Description,
		Status:         string(transaction.StatusPending),
		NodeID:         lnd.Send.NodeID,
	}
	if decoded.ExpirySeconds > 0 {
		expiresAt := decoded.Timestamp.Add(time.Duration(decoded.ExpirySeconds) * time.Second).UTC()
		tx.ExpiresAt = &expiresAt
	}

	if err := pc.repo.Insert(ctx, tx); err != nil {
		if err == repositories.ErrAlreadyExists {
			response.Abort400(c, "该支付请求已发起过支付")
			return
		}
		response.ServerError(c, err, "写入支付记录失败")
		return
	}

	resp, err := lnd.Send.SendPaymentSync(ctx, tx.PaymentRequest, config.GetInt64("lnd.fee_limit_percent"))
	if err != nil {
		// 传输层失败：节点可能已在途，留 pending 等待人工或后续核对
		logger.ErrorString("Payment", "Store", "调用支付接口失败: "+err.Error())
		response.ServerError(c, err, "支付请求发送失败")
		return
	}

	if resp.PaymentError != "" {
		pc.settleFailed(c, tx, resp.PaymentError)
		return
	}

	pc.settleSucceeded(c, tx, resp)
}

// settleFailed 路由层支付失败，记录失败原因后返回错误
func (pc *PaymentController) settleFailed(c *gin.Context, tx *transaction.Transaction, reason string) {
	_, _, err := pc.repo.ConditionalUpdateStatus(
		c.Request.Context(),
		transaction.KindPayment, tx.PaymentHash,
		transaction.StatusFailed,
		repositories.StatusUpdate{FailureReason: &reason},
	)
	if err != nil {
		logger.ErrorString("Payment", "settleFailed", "更新支付状态失败: "+err.Error())
	}

	response.Abort400(c, "支付失败: "+reason)
}

// settleSucceeded 支付成功，写入原像与手续费并广播事件
func (pc *PaymentController) settleSucceeded(c *gin.Context, tx *transaction.Transaction, resp *lnd.SendResponse) {
	preimage := hex.EncodeToString(resp.PaymentPreimage)

	fields := repositories.StatusUpdate{Preimage: &preimage}
	if resp.PaymentRoute != nil {
		feeSats := resp.PaymentRoute.TotalFeesMsat / 1000
		fields.FeeSats = &feeSats
	}

	updated, ok, err := pc.repo.ConditionalUpdateStatus(
		c.Request.Context(),
		transaction.KindPayment, tx.PaymentHash,
		transaction.StatusSucceeded,
		fields,
	)
	if err != nil {
		logger.ErrorString("Payment", "settleSucceeded", "更新支付状态失败: "+err.Error())
		response.ServerError(c, err, "支付已完成但状态更新失败")
		return
	}

	result := tx
	if ok {
		result = updated
		if eventbus.B != nil {
			eventbus.B.Publish(eventbus.Event{
				Type:        eventbus.EventPaymentSucceeded,
				Transaction: *updated,
			})
		}
	}

	response.Data(c, result)
}

// Show 按支付哈希查询支付记录
func (pc *PaymentController) Show(c *gin.Context) {
	paymentHash := strings.ToLower(c.Param("hash"))
	if paymentHash == "" {
		response.Abort400(c, "缺少支付哈希")
		return
	}

	tx, err := pc.repo.GetByHash(c.Request.Context(), transaction.KindPayment, paymentHash)
	if err != nil {
		response.ServerError(c, err, "查询支付记录失败")
		return
	}
	if tx == nil {
		response.Abort404(c, "支付记录不存在")
		return
	}

	response.Data(c, tx)
}
