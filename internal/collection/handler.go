package collection

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"feewallet/internal/api"
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

// @Summary      Get collection account details
// @Description  Returns a collection account and its pooled balance. Read-only; never creates the account.
// @Tags         collection-accounts
// @Produce      json
// @Security     BearerAuth
// @Param        collectionID path string true "Collection id"
// @Success      200 {object} CollectionAccount
// @Failure      404 {object} api.ErrorResponse
// @Router       /collection-accounts/{collectionID} [get]
func (h *Handler) GetCollectionAccount(c *gin.Context) {
	collectionID := c.Param("collectionID")

	acct, err := h.repo.FindByCollectionID(c.Request.Context(), h.db, collectionID)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "collection account not found"})
			return
		}
		logger.WithError(err).Error("failed to load collection account", "collection_id", collectionID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load collection account"})
		return
	}

	c.JSON(http.StatusOK, acct)
}
