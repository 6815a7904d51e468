package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libraria/acquisitions/internal/domain/shared"
	"github.com/libraria/acquisitions/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message))
}

// DomainFailure translates an engine error into an HTTP response.
// DomainError codes map onto statuses; anything else is a collaborator
// failure and surfaces as a bad gateway, never a raw transport error.
func (h *BaseHandler) DomainFailure(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		c.JSON(status, dto.NewErrorResponseWithParams(domainErr.Code, domainErr.Message, domainErr.Parameters))
		return
	}
	c.JSON(http.StatusBadGateway, dto.NewErrorResponse(dto.ErrCodeUpstream, err.Error()))
}
