package bootstrap

import (
	"context"
	"fmt"
	"time"

	"lnwallet/pkg/config"
	"lnwallet/pkg/lnd"
	"lnwallet/pkg/logger"
)

// SetupLND 初始化收付款两个节点的客户端
// 启动时各做一次 GetInfo，既校验连通性，也取回节点身份公钥
func SetupLND() error {
	receive, err := newNodeClient("lnd.receive")
	if err != nil {
		return fmt.Errorf("初始化收款节点失败: %w", err)
	}

	send, err := newNodeClient("lnd.send")
	if err != nil {
		return fmt.Errorf("初始化付款节点失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	receiveInfo, err := receive.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("收款节点不可达: %w", err)
	}
	receive.NodeID = receiveInfo.IdentityPubkey

	sendInfo, err := send.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("付款节点不可达: %w", err)
	}
	send.NodeID = sendInfo.IdentityPubkey

	lnd.Receive = receive
	lnd.Send = send

	logger.InfoJSON("LND", "SetupLND", map[string]string{
		"receive_node":  receiveInfo.IdentityPubkey,
		"receive_alias": receiveInfo.Alias,
		"send_node":     sendInfo.IdentityPubkey,
		"send_alias":    sendInfo.Alias,
	})
	return nil
}

// newNodeClient 按配置前缀构建节点客户端
func newNodeClient(prefix string) (*lnd.Client, error) {
	return lnd.NewClient(lnd.Config{
		Host:         config.GetString(prefix + ".host"),
		CertPath:     config.GetString(prefix + ".cert_path"),
		MacaroonPath: config.GetString(prefix + ".macaroon_path"),
		RateLimit:    config.GetInt("lnd.rate_limit"),
		RateBurst:    config.GetInt("lnd.rate_burst"),
	})
}
