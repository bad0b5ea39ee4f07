package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/ginx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

// ErrorHandler 统一错误处理中间件
// 1. 捕获 panic，返回 500
// 2. handler 通过 c.Error 挂载的错误统一转换为响应
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(c.Request.Context(), "panic recovered: path=%s, panic=%v", c.FullPath(), r)
				c.Abort()
				ginx.InternalError(c, http.StatusText(http.StatusInternalServerError))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		log.Warnf(c.Request.Context(), "request failed: path=%s, err=%s", c.FullPath(), fmt.Sprint(err))
		ginx.FromError(c, err)
	}
}
