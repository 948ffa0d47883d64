package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"slot-history-backend/internal/history"
	"slot-history-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
	log   zerolog.Logger
	loc   *time.Location
}

// NewHandler creates a new API handler. Times in responses are expressed in loc.
func NewHandler(s store.Store, log zerolog.Logger, loc *time.Location) *Handler {
	return &Handler{
		store: s,
		log:   log.With().Str("component", "api").Logger(),
		loc:   loc,
	}
}

// partition reads the center from the path and the test type from ?test=.
func (h *Handler) partition(c *gin.Context) (history.PartitionKey, bool) {
	centerID, err := strconv.Atoi(c.Param("center_id"))
	if err != nil || centerID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid center ID"})
		return history.PartitionKey{}, false
	}
	test := strings.Join(strings.Fields(c.Query("test")), " ")
	if test == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing 'test' parameter"})
		return history.PartitionKey{}, false
	}
	return history.PartitionKey{CenterID: centerID, TestType: test}, true
}

// timeParam parses an optional RFC3339 query parameter into the local zone.
func (h *Handler) timeParam(c *gin.Context, name string) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid '%s' timestamp format. Use RFC3339.", name)})
		return time.Time{}, false
	}
	return t.In(h.loc), true
}

func (h *Handler) timeRange(c *gin.Context) (store.TimeRange, bool) {
	from, ok := h.timeParam(c, "from")
	if !ok {
		return store.TimeRange{}, false
	}
	to, ok := h.timeParam(c, "to")
	if !ok {
		return store.TimeRange{}, false
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "'from' must be before 'to'"})
		return store.TimeRange{}, false
	}
	return store.TimeRange{From: from, To: to}, true
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
}
