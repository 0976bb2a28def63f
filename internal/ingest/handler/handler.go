// Package handler exposes the ingest ops API over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookingsync_backend/internal/ingest/alias"
	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/ingest/service"
	"bookingsync_backend/internal/ingest/transport"
	"bookingsync_backend/internal/scheduler"
	"bookingsync_backend/platform/httpkit"
	"bookingsync_backend/platform/logger"
	"bookingsync_backend/platform/validator"
)

// TaskEnqueuer queues long-running ingestion work. Nil-safe implementations
// drop enqueues when no queue is configured.
type TaskEnqueuer interface {
	EnqueueBackfill(ctx context.Context, payload scheduler.BackfillPayload) error
	EnqueueReprocessSweep(ctx context.Context, payload scheduler.ReprocessSweepPayload) error
}

// Handler serves the ingest ops endpoints.
type Handler struct {
	svc      *service.Service
	aliases  *alias.Repository
	resolver *alias.Resolver
	tasks    TaskEnqueuer
	val      *validator.Validator
	log      *logger.Logger
}

// New creates the handler.
func New(svc *service.Service, aliases *alias.Repository, resolver *alias.Resolver, tasks TaskEnqueuer, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, aliases: aliases, resolver: resolver, tasks: tasks, val: val, log: log}
}

// RegisterRoutes mounts the ops API on the authenticated group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/ingest/messages/:id/reprocess", h.reprocessMessage)
	g.POST("/ingest/reprocess-sweep", h.reprocessSweep)
	g.POST("/ingest/backfill", h.backfill)

	g.GET("/ingest/messages", h.listMessages)
	g.GET("/ingest/messages/:id", h.getMessage)

	g.GET("/bookings", h.listBookings)
	g.GET("/bookings/:id", h.getBooking)

	g.GET("/aliases", h.listAliases)
	g.POST("/aliases", h.createAlias)
	g.PUT("/aliases/:id", h.updateAlias)
}

func (h *Handler) reprocessMessage(c *gin.Context) {
	var req transport.ReprocessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	res, err := h.svc.ProcessBookingEmail(c.Request.Context(), c.Param("id"), req.Force)
	if err != nil && res.Status != domain.MessageStatusFailed {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ReprocessResponse{
		Status:     string(res.Status),
		BookingIDs: res.BookingIDs,
		Rebuilt:    res.Rebuilt,
		Report:     res.Report,
	})
}

func (h *Handler) reprocessSweep(c *gin.Context) {
	var req transport.SweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if h.tasks == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "task queue not configured", nil)
		return
	}
	if err := h.tasks.EnqueueReprocessSweep(c.Request.Context(), scheduler.ReprocessSweepPayload{Limit: req.Limit}); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Accepted(c, gin.H{"status": "enqueued"})
}

func (h *Handler) backfill(c *gin.Context) {
	var req transport.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if h.tasks == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "task queue not configured", nil)
		return
	}
	err := h.tasks.EnqueueBackfill(c.Request.Context(), scheduler.BackfillPayload{
		After:    req.After,
		Before:   req.Before,
		PageSize: req.PageSize,
		Force:    req.Force,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Accepted(c, gin.H{"status": "enqueued"})
}

func (h *Handler) listMessages(c *gin.Context) {
	status := domain.MessageStatus(c.Query("status"))
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	msgs, err := h.svc.ListMessages(c.Request.Context(), status, limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, transport.FromMessage(m))
	}
	httpkit.OK(c, gin.H{"messages": out})
}

func (h *Handler) getMessage(c *gin.Context) {
	m, err := h.svc.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.FromMessage(m))
}

func (h *Handler) listBookings(c *gin.Context) {
	platform := domain.Platform(c.Query("platform"))
	status := domain.BookingStatus(c.Query("status"))
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	bookings, err := h.svc.ListBookings(c.Request.Context(), platform, status, limit, offset)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, transport.FromBooking(b))
	}
	httpkit.OK(c, gin.H{"bookings": out})
}

func (h *Handler) getBooking(c *gin.Context) {
	b, evs, addons, err := h.svc.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	detail := transport.BookingDetailResponse{
		BookingResponse: transport.FromBooking(b),
		Addons:          addons,
		Events:          make([]transport.EventResponse, 0, len(evs)),
	}
	for _, e := range evs {
		var payload any
		if len(e.Payload) > 0 {
			_ = json.Unmarshal(e.Payload, &payload)
		}
		detail.Events = append(detail.Events, transport.EventResponse{
			ID:              e.ID.String(),
			EventType:       string(e.EventType),
			ResultingStatus: string(e.ResultingStatus),
			OccurredAt:      e.OccurredAt,
			RawMessageID:    e.RawMessageID.String(),
			Payload:         payload,
		})
	}
	httpkit.OK(c, detail)
}

func (h *Handler) listAliases(c *gin.Context) {
	aliases, err := h.aliases.List(c.Request.Context(), queryInt(c, "limit", 200))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.AliasResponse, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, transport.FromAlias(a))
	}
	httpkit.OK(c, gin.H{"aliases": out})
}

func (h *Handler) createAlias(c *gin.Context) {
	a, ok := h.bindAlias(c)
	if !ok {
		return
	}

	created, err := h.aliases.Create(c.Request.Context(), a)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	h.resolver.Invalidate()

	httpkit.JSON(c, http.StatusCreated, transport.FromAlias(created))
}

func (h *Handler) updateAlias(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid alias id", nil)
		return
	}

	a, ok := h.bindAlias(c)
	if !ok {
		return
	}
	a.ID = id

	updated, err := h.aliases.Update(c.Request.Context(), a)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	h.resolver.Invalidate()

	httpkit.OK(c, transport.FromAlias(updated))
}

func (h *Handler) bindAlias(c *gin.Context) (alias.ProductAlias, bool) {
	var req transport.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return alias.ProductAlias{}, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return alias.ProductAlias{}, false
	}

	a := alias.ProductAlias{
		Label:     req.Label,
		MatchType: alias.MatchType(req.MatchType),
		Priority:  req.Priority,
		IsActive:  req.IsActive,
	}
	if req.ProductID != "" {
		pid, err := uuid.Parse(req.ProductID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid product id", nil)
			return alias.ProductAlias{}, false
		}
		a.ProductID = &pid
	}
	return a, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
