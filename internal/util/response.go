package util

import (
	"net/http"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Error   ErrorKind   `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    http.StatusBadRequest,
		Message: message,
		Error:   KindValidation,
	})
}

// RespondError 按错误分类输出状态码；持久化错误不向客户端暴露细节
func RespondError(c *gin.Context, err error) {
	kind := KindOf(err)
	status := StatusFor(kind)
	message := err.Error()
	if kind == KindPersistence {
		logger.Log.Error("Internal server error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "Internal server error"
	}
	c.JSON(status, Response{
		Code:    status,
		Message: message,
		Error:   kind,
	})
}
