package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slot-history-backend/internal/history"
)

// GetCenters handles the GET /api/centers request.
func (h *Handler) GetCenters(c *gin.Context) {
	centers, err := h.store.Centers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to retrieve centers")
		return
	}
	if centers == nil {
		centers = []history.CenterInfo{}
	}
	c.JSON(http.StatusOK, centers)
}

// GetFinalStatus handles GET /api/centers/{center_id}/final-status?test=.
func (h *Handler) GetFinalStatus(c *gin.Context) {
	key, ok := h.partition(c)
	if !ok {
		return
	}
	final, err := h.store.FinalStatuses(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err, "Failed to retrieve final statuses")
		return
	}
	if final == nil {
		final = []history.FinalStatusRecord{}
	}
	c.JSON(http.StatusOK, final)
}

// GetActivity handles GET /api/centers/{center_id}/activity?test=&from=&to=.
func (h *Handler) GetActivity(c *gin.Context) {
	key, ok := h.partition(c)
	if !ok {
		return
	}
	r, ok := h.timeRange(c)
	if !ok {
		return
	}
	events, err := h.store.Activity(c.Request.Context(), key, r)
	if err != nil {
		h.fail(c, err, "Failed to retrieve activity")
		return
	}
	if events == nil {
		events = []history.ActivityEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// GetSlot handles GET /api/centers/{center_id}/slots?test=&appointment=.
func (h *Handler) GetSlot(c *gin.Context) {
	key, ok := h.partition(c)
	if !ok {
		return
	}
	appt, ok := h.timeParam(c, "appointment")
	if !ok {
		return
	}
	if appt.IsZero() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing 'appointment' parameter"})
		return
	}
	slot := history.SlotKey{CenterID: key.CenterID, TestType: key.TestType, Appointment: appt}
	res, err := h.store.SlotHistory(c.Request.Context(), slot)
	if err != nil {
		h.fail(c, err, "Failed to retrieve slot history")
		return
	}
	c.JSON(http.StatusOK, res)
}
