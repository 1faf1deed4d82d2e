package staff

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login
// @Summary Staff login with phone and PIN
// @Tags Staff
// @Accept json
// @Produce json
// @Param request body LoginRequest true "credentials"
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/staff/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", errors)
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Phone, req.Pin)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.CustomError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Phone or PIN is incorrect")
		case errors.Is(err, ErrAccountLocked):
			response.CustomError(c, http.StatusForbidden, "ACCOUNT_LOCKED", "Account is temporarily locked")
		case errors.Is(err, ErrAccountDisabled):
			response.CustomError(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
		default:
			response.CustomError(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"staff": result.Staff,
		"tokens": gin.H{
			"access_token": result.AccessToken,
		},
	})
}

// Register
// @Summary Create a staff account
// @Tags Staff
// @Security BearerAuth
// @Router /api/v1/staff [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", errors)
		return
	}

	st, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			response.CustomError(c, http.StatusConflict, "PHONE_TAKEN", "Phone is already registered")
			return
		}
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"staff": st})
}
