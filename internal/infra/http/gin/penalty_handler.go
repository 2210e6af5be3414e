package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"akwa/internal/app/commands"
	"akwa/internal/app/dto"
	"akwa/internal/app/handlers/penalties"
	"akwa/internal/app/queries"
)

// PenaltyHandler is the admin surface over penalty records.
type PenaltyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type waiveRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type collectRequest struct {
	Method string `json:"method"`
	Notes  string `json:"notes"`
}

func (h PenaltyHandler) List(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	q := penalties.ListPenaltiesQuery{
		Status:    normalize(c.Query("status")),
		HostID:    strings.TrimSpace(c.Query("host_id")),
		BookingID: strings.TrimSpace(c.Query("booking_id")),
		Limit:     parseIntWithDefault(c.Query("limit"), 0),
		Offset:    parseIntWithDefault(c.Query("offset"), 0),
	}
	result, err := queries.Ask[penalties.ListPenaltiesQuery, *dto.PenaltyCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PenaltyHandler) Waive(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req waiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": err.Error()})
		return
	}
	cmd := penalties.WaivePenaltyCommand{PenaltyID: c.Param("id"), Reason: req.Reason, Notes: req.Notes}
	view, err := commands.Dispatch[penalties.WaivePenaltyCommand, *dto.PenaltyView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h PenaltyHandler) Collect(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req collectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": err.Error()})
			return
		}
	}
	cmd := penalties.MarkCollectedCommand{PenaltyID: c.Param("id"), Method: normalize(req.Method), Notes: req.Notes}
	view, err := commands.Dispatch[penalties.MarkCollectedCommand, *dto.PenaltyView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func parseIntWithDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

var _ PenaltyHTTP = PenaltyHandler{}
