// Package handler holds the shared response envelope and helpers used by
// every resource handler package.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alsalam/hospital-api/pkg/apperror"
)

// Response is the success envelope for single resources.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ListMeta carries pagination totals next to list payloads.
type ListMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ListResponse is the success envelope for paginated collections.
type ListResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Meta   ListMeta    `json:"meta"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func List(c *gin.Context, data interface{}, total, page, pageSize int) {
	c.JSON(http.StatusOK, ListResponse{
		Status: "success",
		Data:   data,
		Meta:   ListMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

// Error hands err to the error middleware, which picks the status code and
// renders the envelope.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BindError wraps a binding failure so the client sees the validator's
// message with a 400.
func BindError(c *gin.Context, err error) {
	Error(c, apperror.Validation(err.Error()))
}

// ParseID reads a UUID path parameter.
func ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		Error(c, apperror.Validationf("invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}
