package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"slowdown-service/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes the standard success envelope.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed maps an error to the standard failure envelope. Business errors
// carry their own code; anything else becomes an internal server error.
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if !errors.As(err, &e) {
		e = &errno.Errno{Code: errno.ErrInternalServer.Code, Message: err.Error()}
	}

	status := http.StatusOK
	switch {
	case e.Code >= 400 && e.Code < 500:
		status = e.Code
	case e.Code >= 500 && e.Code < 600:
		status = http.StatusInternalServerError
	case e.Code >= 20000:
		status = http.StatusBadRequest
	}

	ctx.JSON(status, Response{
		Code:    e.Code,
		Message: e.Message,
	})
}
