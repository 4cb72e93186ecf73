package middlewares

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseBodyCaptureIsBounded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	w := responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}

	// 模拟长连接持续写入，总量远超留存上限
	chunk := bytes.Repeat([]byte("data: ping\n\n"), 1024)
	var written int
	for written < 4*maxCapturedBody {
		n, err := w.Write(chunk)
		require.NoError(t, err)
		require.Equal(t, len(chunk), n)
		written += n
	}

	// 客户端收到全部数据，留存缓冲不随连接时长增长
	assert.Equal(t, written, recorder.Body.Len())
	assert.LessOrEqual(t, w.body.Len(), maxCapturedBody)
}

func TestResponseBodyCaptureKeepsSmallBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	w := responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}

	_, err := w.Write([]byte(`{"status":"error"}`))
	require.NoError(t, err)

	assert.Equal(t, `{"status":"error"}`, w.body.String())
	assert.Equal(t, `{"status":"error"}`, recorder.Body.String())
}
