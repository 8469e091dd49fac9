package fraud

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/localperks/review-rewards/pkg/common"
)

// Handler handles HTTP requests for the fraud activity log
type Handler struct {
	recorder *Recorder
}

// NewHandler creates a new fraud handler
func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// ListActivity returns recent suspicious activity entries, most recent first.
// Supports ?event_type= and ?limit= filters. Admin only.
func (h *Handler) ListActivity(c *gin.Context) {
	eventType := EventType(c.Query("event_type"))

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			common.AppErrorResponse(c, common.NewBadRequestError("limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}

	entries := h.recorder.Query(eventType, limit)
	if entries == nil {
		entries = []*Entry{}
	}

	common.SuccessResponse(c, gin.H{
		"entries": entries,
		"total":   h.recorder.Len(),
	})
}

// ClearActivity empties the activity log and reports how many entries were
// dropped. Admin only.
func (h *Handler) ClearActivity(c *gin.Context) {
	cleared := h.recorder.Clear()
	common.SuccessResponse(c, gin.H{"cleared": cleared})
}
