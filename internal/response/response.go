// Package response defines the JSON envelope every HTTP endpoint returns and
// the typed error codes clients switch on.
package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope. Data is always present (null on errors); Error
// and Pagination appear only when relevant.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries a machine-readable code, a display message, and optional
// per-field validation detail.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Metadata ties a response to its request for tracing.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success sends data with the given status code.
func Success(c *gin.Context, statusCode int, data interface{}) {
	send(c, statusCode, data, nil, nil)
}

// SuccessWithPagination sends one page of a listing.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	send(c, statusCode, data, nil, pagination)
}

// Fail sends an error response identified by code alone.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	send(c, statusCode, nil, &ErrorBody{Code: code, Message: GetMessage(code)}, nil)
}

// FailWithFields sends an error response with field-level validation detail.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	send(c, statusCode, nil, &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}, nil)
}

// AbortFail stops the middleware chain and sends an error response. Used by
// auth middleware so handlers never run on a rejected request.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.Abort()
	send(c, statusCode, nil, &ErrorBody{Code: code, Message: GetMessage(code)}, nil)
}

func send(c *gin.Context, statusCode int, data interface{}, errBody *ErrorBody, pagination *Pagination) {
	c.JSON(statusCode, Response{
		Data:       data,
		Error:      errBody,
		Pagination: pagination,
		Metadata:   meta(c),
	})
}

func meta(c *gin.Context) Metadata {
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		// Middleware not applied (direct handler tests); mint one anyway.
		id = uuid.NewString()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
