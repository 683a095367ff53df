package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mchen/wallet-backend/internal/auth"
	"github.com/mchen/wallet-backend/internal/models"
	"github.com/mchen/wallet-backend/internal/ratelimit"
	"github.com/mchen/wallet-backend/internal/service"
	"github.com/sirupsen/logrus"
)

// Handler wires the HTTP surface to the service layer
type Handler struct {
	svc           service.Service
	authenticator *auth.TokenAuthenticator
	limiter       *ratelimit.Limiter
	logger        *logrus.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	svc service.Service,
	authenticator *auth.TokenAuthenticator,
	limiter *ratelimit.Limiter,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		svc:           svc,
		authenticator: authenticator,
		limiter:       limiter,
		logger:        logger,
	}
}

// SetupRoutes registers all routes on the router. Admission control wraps
// everything, including public routes; authentication only the protected group.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(RequestLogger(h.logger))
	router.Use(RateLimitMiddleware(h.limiter))

	api := router.Group("/api")

	api.GET("/health", h.Health)
	api.POST("/auth/register", h.SignUp)
	api.POST("/auth/login", h.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(h.authenticator))

	protected.GET("/me", h.GetMe)
	protected.PATCH("/me", h.UpdateMe)
	protected.POST("/transactions", h.CreateTransaction)
	protected.GET("/transactions/summary/:userId", h.GetSummary)
	protected.GET("/transactions/:userId", h.ListTransactions)
	protected.DELETE("/transactions/:id", h.DeleteTransaction)
}

// Health is a liveness probe
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// SignUp registers a new user account
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid_request", err.Error())
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Status:  "error",
				Code:    "email_taken",
				Message: "A user with this email already exists",
			})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login exchanges credentials for a signed bearer token
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid_request", err.Error())
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Status:  "error",
				Code:    "invalid_credentials",
				Message: "Invalid email or password",
			})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetMe returns the authenticated caller's profile
func (h *Handler) GetMe(c *gin.Context) {
	userID := c.GetString("userId")

	user, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.notFound(c)
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe applies a partial update to the caller's profile
func (h *Handler) UpdateMe(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid_request", err.Error())
		return
	}

	user, err := h.svc.UpdateMe(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			h.notFound(c)
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Status:  "error",
				Code:    "email_taken",
				Message: "A user with this email already exists",
			})
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateTransaction records a new ledger entry owned by the caller
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid_request", err.Error())
		return
	}

	txn, err := h.svc.CreateTransaction(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			h.badRequest(c, "invalid_amount", "Amount must be a non-zero integer in minor units")
		case errors.Is(err, service.ErrMissingCategory):
			h.badRequest(c, "missing_field", "Category is required")
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, models.TransactionResponse{
		Status:      "success",
		Transaction: txn,
	})
}

// ListTransactions returns a page of the caller's transactions, newest first
func (h *Handler) ListTransactions(c *gin.Context) {
	userID := c.GetString("userId")
	if c.Param("userId") != userID {
		h.forbidden(c)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, offset = service.ClampPage(limit, offset)

	transactions, err := h.svc.GetTransactionsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.serverError(c, err)
		return
	}

	if transactions == nil {
		transactions = []models.Transaction{}
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{
		Status:       "success",
		Transactions: transactions,
		Limit:        limit,
		Offset:       offset,
	})
}

// GetSummary returns the caller's aggregated income, expense and balance
func (h *Handler) GetSummary(c *gin.Context) {
	userID := c.GetString("userId")
	if c.Param("userId") != userID {
		h.forbidden(c)
		return
	}

	summary, err := h.svc.GetSummaryByUser(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SummaryResponse{
		Status:  "success",
		Summary: *summary,
	})
}

// DeleteTransaction removes one of the caller's transactions. A foreign id
// gets the same 404 as a missing one, so deletes cannot probe for the
// existence of other users' records.
func (h *Handler) DeleteTransaction(c *gin.Context) {
	userID := c.GetString("userId")
	transactionID := c.Param("id")

	err := h.svc.DeleteTransaction(c.Request.Context(), userID, transactionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound), errors.Is(err, service.ErrNotOwner):
			h.notFound(c)
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		Status:  "success",
		Message: "Transaction deleted",
	})
}

// Error helpers
func (h *Handler) badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func (h *Handler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Status:  "error",
		Code:    "not_found",
		Message: "Resource not found",
	})
}

func (h *Handler) forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, models.ErrorResponse{
		Status:  "error",
		Code:    "forbidden",
		Message: "You can only access your own data",
	})
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "store_error",
		Message: "Internal server error",
	})
}
