package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/avencore/datahaven/pkg/errors"
)

// Envelope is the JSON body wrapping every API payload.
//
// Successful calls carry {"status":"success","data":...}; failures carry
// {"status":"error","message":...}. Permission denials deliberately send an
// empty body instead (see Forbidden).
type Envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success writes a JSON success envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Envelope{
		Status: "success",
		Data:   data,
	})
}

// Error writes a JSON error envelope derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Envelope{
		Status:  "error",
		Message: appErr.Message,
	})
}

// Forbidden writes an empty-body 403. Permission denials are a gate
// decision, not an error envelope, so clients can distinguish "you may not"
// from "this source cannot".
func Forbidden(c *gin.Context) {
	c.Status(http.StatusForbidden)
}

// NotFound writes a 404 error envelope.
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Envelope{
		Status:  "error",
		Message: message,
	})
}

// Raw passes an upstream payload through without re-encoding it.
func Raw(c *gin.Context, statusCode int, contentType string, body []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(statusCode, contentType, body)
}
