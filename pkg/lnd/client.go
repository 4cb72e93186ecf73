// Package lnd 封装对 LND 节点 REST 接口的访问
//
// 每个 Client 持有一条到节点的连接配置；远端存根不能安全共享，
// 所有调用经由互斥锁串行化——同一时刻每条连接只允许一个在途请求，
// 后来的调用方排队等待而不是破坏共享流状态。
package lnd

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"
)

// 全局客户端实例，bootstrap.SetupLND 中初始化
var (
	// Receive 收款节点连接：开票、查询
	Receive *Client
	// Send 付款节点连接：支付
	Send *Client
)

// Config 单个节点的连接配置
type Config struct {
	Host         string // REST 地址，如 127.0.0.1:8080
	CertPath     string // TLS 证书路径
	MacaroonPath string // macaroon 凭证路径
	RateLimit    int    // 每秒请求数上限
	RateBurst    int    // 突发请求数
}

// Client LND 节点客户端
type Client struct {
	host      string
	macaroon  string // hex 编码，置于请求头
	tlsConfig *tls.Config
	http      *resty.Client
	limiter   *rate.Limiter

	// 串行化在途调用，见包注释
	mu sync.Mutex

	// NodeID 节点身份公钥，SetupLND 时通过 GetInfo 填充
	NodeID string
}

// NewClient 创建节点客户端，读取证书与 macaroon 并建立 TLS 配置
func NewClient(cfg Config) (*Client, error) {
	cert, err := os.ReadFile(expandPath(cfg.CertPath))
	if err != nil {
		return nil, fmt.Errorf("读取 LND TLS 证书失败: %w", err)
	}
	macaroonBytes, err := os.ReadFile(expandPath(cfg.MacaroonPath))
	if err != nil {
		return nil, fmt.Errorf("读取 LND macaroon 失败: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(cert) {
		return nil, errors.New("LND TLS 证书解析失败")
	}
	tlsConfig := &tls.Config{RootCAs: caCertPool}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = cfg.RateLimit
	}

	macaroon := hex.EncodeToString(macaroonBytes)

	httpClient := resty.New().
		SetBaseURL("https://" + cfg.Host).
		SetTLSClientConfig(tlsConfig).
		SetHeader("Grpc-Metadata-macaroon", macaroon)

	return &Client{
		host:      cfg.Host,
		macaroon:  macaroon,
		tlsConfig: tlsConfig,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}, nil
}

// GetInfo 获取节点身份信息
func (c *Client) GetInfo(ctx context.Context) (*NodeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var info NodeInfo
	if err := c.get(ctx, "/v1/getinfo", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListInvoices 拉取节点的全量发票列表
func (c *Client) ListInvoices(ctx context.Context) ([]Invoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out listInvoicesResponse
	if err := c.get(ctx, "/v1/invoices?num_max_invoices=1000000&reversed=false", &out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}

// AddInvoice 在节点上开具发票
func (c *Client) AddInvoice(ctx context.Context, amountSats int64, memo string, expirySeconds int64) (*AddInvoiceResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body := struct {
		Memo   string `json:"memo,omitempty"`
		Value  int64  `json:"value,string"`
		Expiry int64  `json:"expiry,string"`
	}{
		Memo:   memo,
		Value:  amountSats,
		Expiry: expirySeconds,
	}

	var out AddInvoiceResponse
	if err := c.post(ctx, "/v1/invoices", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendPaymentSync 同步支付一张发票
// 返回的 SendResponse.PaymentError 非空表示路由层面的支付失败，不作为 error 返回
func (c *Client) SendPaymentSync(ctx context.Context, paymentRequest string, feeLimitPercent int64) (*SendResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body := struct {
		PaymentRequest string `json:"payment_request"`
		FeeLimit       struct {
			Percent int64 `json:"percent,string"`
		} `json:"fee_limit"`
	}{
		PaymentRequest: paymentRequest,
	}
	body.FeeLimit.Percent = feeLimitPercent

	var out SendResponse
	if err := c.post(ctx, "/v1/channels/transactions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InvoiceStream 发票事件流
type InvoiceStream interface {
	// Recv 阻塞读取下一条发票事件，流结束或出错时返回 error
	Recv() (*Invoice, error)
	Close() error
}

// SubscribeInvoices 打开长连接的发票事件流
// 订阅连接独占使用，不经过串行化互斥锁（调用方自行持有专属 Client）
func (c *Client) SubscribeInvoices(ctx context.Context) (InvoiceStream, error) {
	header := http.Header{}
	header.Add("Grpc-Metadata-Macaroon", c.macaroon)

	location, err := url.Parse(fmt.Sprintf("wss://%s/v1/invoices/subscribe?method=GET", c.host))
	if err != nil {
		return nil, err
	}
	origin, err := url.Parse("http://" + c.host)
	if err != nil {
		return nil, err
	}

	ws, err := websocket.DialConfig(&websocket.Config{
		Location:  location,
		Origin:    origin,
		TlsConfig: c.tlsConfig,
		Header:    header,
		Version:   13,
	})
	if err != nil {
		return nil, fmt.Errorf("订阅发票事件失败: %w", err)
	}

	return &wsInvoiceStream{ws: ws}, nil
}

// wsInvoiceStream websocket 发票事件流
type wsInvoiceStream struct {
	ws *websocket.Conn
}

func (s *wsInvoiceStream) Recv() (*Invoice, error) {
	var message struct {
		Result Invoice    `json:"result"`
		Error  *restError `json:"error"`
	}
	if err := websocket.JSON.Receive(s.ws, &message); err != nil {
		return nil, err
	}
	if message.Error != nil {
		return nil, fmt.Errorf("发票事件流错误: %s", message.Error.Message)
	}
	return &message.Result, nil
}

func (s *wsInvoiceStream) Close() error {
	return s.ws.Close()
}

// get 执行 GET 请求，带限流
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(result).
		Get(path)
	if err != nil {
		return err
	}
	return checkResponse(resp, path)
}

// post 执行 POST 请求，带限流
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post(path)
	if err != nil {
		return err
	}
	return checkResponse(resp, path)
}

// checkResponse 把非 2xx 响应转为错误
func checkResponse(resp *resty.Response, path string) error {
	if !resp.IsError() {
		return nil
	}
	return fmt.Errorf("LND %s 返回 %d: %s", path, resp.StatusCode(), resp.String())
}

// expandPath 展开路径中的 ~/ 前缀
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
