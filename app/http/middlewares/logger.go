package middlewares

import (
	"bytes"
	"io"
	"time"

	"lnwallet/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// maxCapturedBody 响应体留存上限
// 长连接（如 SSE 事件流）会持续写入，留存必须有界，超出部分只透传不记录
const maxCapturedBody = 64 << 10

// responseBodyWriter 包装 gin 的 ResponseWriter，顺带记录响应体
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	if remain := maxCapturedBody - r.body.Len(); remain > 0 {
		if remain > len(b) {
			remain = len(b)
		}
		r.body.Write(b[:remain])
	}
	return r.ResponseWriter.Write(b)
}

// Logger 记录请求日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {

		// 获取 response 内容
		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		// 获取请求数据
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 读取后重新赋值，不影响后续处理
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		start := time.Now()
		c.Next()

		cost := time.Since(start)
		responseStatus := c.Writer.Status()

		logFields := []zap.Field{
			zap.Int("status", responseStatus),
			zap.String("request", c.Request.Method+" "+c.Request.URL.String()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
			zap.String("time", cost.String()),
		}

		if responseStatus > 400 && responseStatus <= 499 {
			// 客户端错误，附上请求与响应内容方便排查
			logFields = append(logFields,
				zap.String("request_body", string(requestBody)),
				zap.String("response_body", w.body.String()),
			)
			logger.Warn("HTTP Warning "+cast.ToString(responseStatus), logFields...)
		} else if responseStatus >= 500 && responseStatus <= 599 {
			// 服务端错误
			logFields = append(logFields,
				zap.String("request_body", string(requestBody)),
				zap.String("response_body", w.body.String()),
			)
			logger.Error("HTTP Error "+cast.ToString(responseStatus), logFields...)
		} else {
			logger.Debug("HTTP Access Log", logFields...)
		}
	}
}
