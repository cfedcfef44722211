package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestParsePageParams(t *testing.T) {
	params := ParsePageParams(contextWithQuery("page=3&page_size=25"))
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 25, params.PageSize)
	assert.Equal(t, 50, params.GetOffset())
	assert.Equal(t, 25, params.GetLimit())

	// 兼容旧的 limit 参数
	params = ParsePageParams(contextWithQuery("page=2&limit=5"))
	assert.Equal(t, 5, params.PageSize)

	// page_size 优先于 limit
	params = ParsePageParams(contextWithQuery("page_size=20&limit=5"))
	assert.Equal(t, 20, params.PageSize)

	// 非法值回落到默认值
	params = ParsePageParams(contextWithQuery("page=abc&page_size=-1"))
	assert.Equal(t, DefaultPage, params.Page)
	assert.Equal(t, DefaultPageSize, params.PageSize)

	// 超出上限截断
	params = ParsePageParams(contextWithQuery("page_size=500"))
	assert.Equal(t, MaxPageSize, params.PageSize)
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(2, 10, 25)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrev)

	info = NewPageInfo(1, 10, 5)
	assert.Equal(t, 1, info.TotalPages)
	assert.False(t, info.HasNext)
	assert.False(t, info.HasPrev)
}
