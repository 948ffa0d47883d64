package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"slot-history-backend/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetLatestRun handles the GET /api/runs/latest request.
func (h *Handler) GetLatestRun(c *gin.Context) {
	run, err := h.store.LatestRun(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to retrieve latest run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetWorkbook handles GET /api/export.xlsx with every derived table.
func (h *Handler) GetWorkbook(c *gin.Context) {
	res, err := h.store.Tables(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to load tables")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, export.Tables(res)); err != nil {
		h.fail(c, err, "Failed to build workbook")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="slot_history.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
