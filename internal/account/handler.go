package account

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"feewallet/internal/api"
	"feewallet/internal/auth"
	"feewallet/internal/logger"
)

type Handler struct {
	db   *sqlx.DB
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		db:   db,
		repo: NewRepository(),
	}
}

// @Summary      Get current user's account
// @Description  Returns the caller's holder account and balance, creating the account on first reference.
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Account
// @Failure      401 {object} api.ErrorResponse
// @Router       /accounts/me [get]
func (h *Handler) GetMyAccount(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	acct, err := h.repo.GetOrCreate(c.Request.Context(), h.db, userID)
	if err != nil {
		logger.WithError(err).Error("failed to load account", "user_id", userID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load account"})
		return
	}

	c.JSON(http.StatusOK, acct)
}
