package requests

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"
)

// InvoiceStoreRequest 创建发票请求
type InvoiceStoreRequest struct {
	AmountSats    int64  `json:"amount_sats" valid:"amount_sats"`
	Description   string `json:"description" valid:"description"`
	ExpirySeconds int64  `json:"expiry_seconds" valid:"expiry_seconds"`
}

// PaymentStoreRequest 发起支付请求
type PaymentStoreRequest struct {
	PaymentRequest string `json:"payment_request" valid:"payment_request"`
}

// ValidateInvoiceStore 验证创建发票请求
func ValidateInvoiceStore(c *gin.Context) (InvoiceStoreRequest, error) {
	rules := govalidator.MapData{
		"amount_sats": []string{"required"},
		"description": []string{"max:639"},
	}

	messages := govalidator.MapData{
		"amount_sats": []string{
			"required:金额不能为空",
		},
		"description": []string{
			"max:描述最长 639 字节",
		},
	}

	req, err := ValidateRequest[InvoiceStoreRequest](c, rules, messages)
	if err != nil {
		return req, err
	}

	// govalidator 对 int64 零值不触发 required，手动兜底
	if req.AmountSats <= 0 {
		return req, errors.New("金额必须为正整数")
	}
	if req.ExpirySeconds < 0 {
		return req, errors.New("过期时间不能为负数")
	}

	return req, nil
}

// ValidatePaymentStore 验证发起支付请求
func ValidatePaymentStore(c *gin.Context) (PaymentStoreRequest, error) {
	rules := govalidator.MapData{
		"payment_request": []string{"required", "min:1"},
	}

	messages := govalidator.MapData{
		"payment_request": []string{
			"required:支付请求不能为空",
		},
	}

	return ValidateRequest[PaymentStoreRequest](c, rules, messages)
}
