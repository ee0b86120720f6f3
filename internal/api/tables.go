package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/models"
)

// TableHandler serves the read-only table browser.
type TableHandler struct {
	repo TableRepository
	log  *logrus.Logger
}

// NewTableHandler creates a TableHandler.
func NewTableHandler(repo TableRepository, log *logrus.Logger) *TableHandler {
	return &TableHandler{repo: repo, log: log}
}

// List handles GET /api/v1/database/tables.
func (h *TableHandler) List(c *gin.Context) {
	infos, err := h.repo.ListTableInfos(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("listing tables")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to list tables")
		return
	}

	if infos == nil {
		infos = []models.TableInfo{}
	}

	c.JSON(http.StatusOK, gin.H{"tables": infos})
}

// Describe handles GET /api/v1/database/tables/:name.
func (h *TableHandler) Describe(c *gin.Context) {
	name := c.Param("name")
	if err := validateTableName(name); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	ts, err := h.repo.DescribeTable(c.Request.Context(), name)
	if errors.Is(err, models.ErrTableNotFound) {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "table not found")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("table", name).Error("describing table")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to describe table")
		return
	}

	c.JSON(http.StatusOK, ts)
}
