package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftdeck/draftdeck/internal/schedule"
)

// RegisterScheduleRoutes wires slot management, reservation and the waiting
// queue onto the authenticated route group.
func RegisterScheduleRoutes(g *gin.RouterGroup, sched *schedule.Scheduler) {
	g.POST("/schedule/slots", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slot, err := sched.CreateSlot(c.Request.Context(), id, req.Start, req.End)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, slot)
	})

	g.POST("/schedule/templates", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Start      time.Time                  `json:"start"`
			End        time.Time                  `json:"end"`
			Recurrence schedule.RecurrencePattern `json:"recurrence"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tpl, err := sched.CreateTemplate(c.Request.Context(), id, req.Start, req.End, req.Recurrence)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, tpl)
	})

	g.GET("/schedule/slots", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		slots, err := sched.UpcomingSlots(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, slots)
	})

	g.GET("/schedule/queue", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		entries, err := sched.Queue(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	g.POST("/drafts/:id/reserve", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Window   *schedule.Window  `json:"window,omitempty"`
			Priority schedule.Priority `json:"priority,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slot, queued, err := sched.Reserve(c.Request.Context(), id, c.Param("id"), req.Window, req.Priority)
		if err != nil {
			writeError(c, err)
			return
		}
		if slot != nil {
			c.JSON(http.StatusOK, gin.H{"scheduled": true, "slot": slot})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"scheduled": false, "queued": queued})
	})

	g.POST("/drafts/:id/cancel", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		d, err := sched.Cancel(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})
}
