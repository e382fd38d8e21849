package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/pkg/apperr"
)

// Response Standard API Response
type Response struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// ErrorBody Error response body
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// Success Success response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: apperr.CodeSuccess,
		Data: data,
		Msg:  "success",
	})
}

// SuccessWithMsg Success with message
func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusOK, Response{
		Code: apperr.CodeSuccess,
		Data: data,
		Msg:  msg,
	})
}

// Created 201 with the created resource
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error writes {"error": msg} with the status of the error kind
func Error(c *gin.Context, err error) {
	var ae *apperr.AppError
	if !errors.As(err, &ae) {
		ae = apperr.WrapError(err, apperr.CodeInternalError)
	}
	if ae.Kind == apperr.KindFatal {
		logger.Error("request failed",
			logger.String("path", c.FullPath()),
			logger.String("error", ae.Error()))
	}
	c.AbortWithStatusJSON(ae.Status(), ErrorBody{Error: ae.Message, Code: ae.Code})
}

// BadRequest Bad request response
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: msg, Code: apperr.CodeBadRequest})
}

// Unauthorized Unauthorized response
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: msg, Code: apperr.CodeUnauthorized})
}

// Forbidden Forbidden response
func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody{Error: msg, Code: apperr.CodeForbidden})
}

// NotFound Not found response
func NotFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: msg, Code: apperr.CodeNotFound})
}

// InternalError Internal server error response
func InternalError(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: msg, Code: apperr.CodeInternalError})
}
