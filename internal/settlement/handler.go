package settlement

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"feewallet/internal/account"
	"feewallet/internal/api"
	"feewallet/internal/auth"
	"feewallet/internal/collection"
	"feewallet/internal/db"
	"feewallet/internal/ledger"
	"feewallet/internal/logger"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type PayRequest struct {
	CollectionID string          `json:"collection_id" binding:"required"`
	StudentID    string          `json:"student_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Description  string          `json:"description"`
}

type RefundRequest struct {
	UserID       string          `json:"user_id" binding:"required"`
	CollectionID string          `json:"collection_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Description  string          `json:"description"`
}

type SummaryBatchRequest struct {
	Requests []ledger.SummaryPair `json:"requests"`
}

type SummaryBatchResponse struct {
	Summaries []ledger.PaymentSummary `json:"summaries"`
}

// errStatus is the one table mapping coordinator error kinds to HTTP
// statuses; the core packages only return typed errors and never format
// responses themselves.
func errStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrInsufficientFunds),
		errors.Is(err, collection.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, collection.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrLockTimeout),
		errors.Is(err, db.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("settlement operation failed", "path", c.FullPath())
		c.JSON(status, api.ErrorResponse{Error: "operation failed"})
		return
	}
	c.JSON(status, api.ErrorResponse{Error: err.Error()})
}

// @Summary      Deposit funds
// @Description  Credits the caller's account and records a COMPLETED deposit. External settlement is simulated.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DepositRequest true "Deposit"
// @Success      201 {object} ledger.Transaction
// @Failure      400 {object} api.ErrorResponse
// @Router       /transactions/deposit [post]
func (h *Handler) Deposit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	txn, err := h.svc.Deposit(c.Request.Context(), userID, req.Amount, req.Description)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, txn)
}

// @Summary      Request a withdrawal
// @Description  Debits the caller's account immediately and records a PENDING withdrawal awaiting external payout.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body WithdrawRequest true "Withdrawal"
// @Success      202 {object} ledger.Transaction
// @Failure      400 {object} api.ErrorResponse
// @Router       /transactions/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	txn, err := h.svc.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, txn)
}

// @Summary      Pay toward a collection
// @Description  Debits the caller and credits the collection account atomically, for a named student.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PayRequest true "Payment"
// @Success      201 {object} ledger.Transaction
// @Failure      400 {object} api.ErrorResponse
// @Router       /transactions/pay [post]
func (h *Handler) Pay(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	txn, err := h.svc.Pay(c.Request.Context(), userID, req.CollectionID, req.StudentID, req.Amount, req.Description)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, txn)
}

// @Summary      Process a refund
// @Description  Moves funds back from a collection account to a holder account. Both accounts must exist. Service role only.
// @Tags         internal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RefundRequest true "Refund"
// @Success      201 {object} ledger.Transaction
// @Failure      404 {object} api.ErrorResponse
// @Router       /internal/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	txn, err := h.svc.Refund(c.Request.Context(), req.UserID, req.CollectionID, req.Amount, req.Description)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, txn)
}

// @Summary      Get current user's transaction history
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size" default(100)
// @Param        offset query int false "Page offset" default(0)
// @Success      200 {array} ledger.Transaction
// @Router       /transactions/me [get]
func (h *Handler) History(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txns, err := h.svc.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txns)
}

// @Summary      Total paid per (collection, student) pair
// @Description  Batch aggregation over COMPLETED payments. Pairs without payments report 0.00. Service role only.
// @Tags         internal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SummaryBatchRequest true "Pairs to summarize"
// @Success      200 {object} SummaryBatchResponse
// @Router       /internal/summary/student-collection-payments [post]
func (h *Handler) SummarizePayments(c *gin.Context) {
	var req SummaryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	// Binding stops at the slice; each pair is checked individually.
	for _, pair := range req.Requests {
		if errs := api.ValidateStruct(pair); len(errs) > 0 {
			api.RespondWithValidationErrors(c, errs)
			return
		}
	}

	summaries, err := h.svc.SummarizePayments(c.Request.Context(), req.Requests)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SummaryBatchResponse{Summaries: summaries})
}
