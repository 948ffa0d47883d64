package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slot-history-backend/internal/history"
)

// occupancyResponse mirrors history.OccupancyRate with a null bucket for the
// overall rate.
type occupancyResponse struct {
	Granularity history.Granularity `json:"granularity"`
	Bucket      *time.Time          `json:"bucket"`
	Booked      int                 `json:"booked"`
	Available   int                 `json:"available"`
	Rate        history.Rate        `json:"rate"`
}

// GetOccupancy handles GET /api/centers/{center_id}/occupancy. With both
// from and to set, day and hour buckets without appointments are reported
// with an undefined rate.
func (h *Handler) GetOccupancy(c *gin.Context) {
	key, ok := h.partition(c)
	if !ok {
		return
	}
	g := history.Granularity(c.DefaultQuery("granularity", string(history.GranularityOverall)))
	if !g.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid granularity. Use overall, day or hour."})
		return
	}
	r, ok := h.timeRange(c)
	if !ok {
		return
	}

	rates, err := h.store.Occupancy(c.Request.Context(), key, g, r)
	if err != nil {
		h.fail(c, err, "Failed to retrieve occupancy")
		return
	}
	if g != history.GranularityOverall && !r.From.IsZero() && !r.To.IsZero() {
		rates, err = history.FillOccupancy(rates, key, g, r.From, r.To)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	out := make([]occupancyResponse, 0, len(rates))
	for _, rate := range rates {
		resp := occupancyResponse{
			Granularity: rate.Granularity,
			Booked:      rate.Booked,
			Available:   rate.Available,
			Rate:        rate.Rate,
		}
		if rate.Granularity != history.GranularityOverall {
			b := rate.Bucket
			resp.Bucket = &b
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}
