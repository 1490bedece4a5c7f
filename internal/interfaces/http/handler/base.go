package handler

import (
	"net/http"

	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/finledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getTenantID extracts the tenant ID from the X-Tenant-ID header. The
// surrounding API gateway authenticates the caller and stamps the
// header; this engine trusts it.
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := c.GetHeader("X-Tenant-ID")
	if tenantIDStr == "" {
		return uuid.Nil, errMissingTenant
	}
	return uuid.Parse(tenantIDStr)
}

// getUserID extracts the optional acting-user ID from the X-User-ID header
func getUserID(c *gin.Context) *uuid.UUID {
	userIDStr := c.GetHeader("X-User-ID")
	if userIDStr == "" {
		return nil
	}
	id, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}
	return &id
}

var errMissingTenant = &missingTenantError{}

type missingTenantError struct{}

func (e *missingTenantError) Error() string { return "X-Tenant-ID header is required" }

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message))
}

// BindingError sends a 400 response for a failed request binding
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeValidation, middleware.FormatValidationError(err)))
}

// HandleError classifies a domain error and sends the mapped response
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	code, message := dto.FromDomainError(err)
	_ = c.Error(err)
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message))
}
