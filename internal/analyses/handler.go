package analyses

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"ats-backend/internal/profile"
	"ats-backend/internal/queue"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/usage"
)

const maxJSONBody = 1 << 20

// Handler wires HTTP handlers to the analyses service. Async jobs go to
// Queue, or run in-process when Queue is nil.
type Handler struct {
	Svc   *Service
	Queue queue.Client
	Now   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, q queue.Client) *Handler {
	return &Handler{Svc: svc, Queue: q, Now: time.Now}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analyze", h.analyzeDocument)
	rg.POST("/analyses/text", h.analyzeText)
	rg.POST("/analyses/profile", h.analyzeProfile)
	rg.POST("/analyses/profile/async", h.enqueueProfile)
	rg.POST("/analyses/pending/:id/save", h.savePending)
	rg.GET("/analyses", h.list)
	rg.GET("/analyses/summary", h.summary)
	rg.GET("/analyses/:id", h.get)
}

type contextRequest struct {
	TargetRole     string `json:"targetRole"`
	JobDescription string `json:"jobDescription"`
}

type textRequest struct {
	contextRequest
	Fields map[string]string `json:"fields"`
}

type profileRequest struct {
	contextRequest
	Profile *profile.ThirdPartyProfile `json:"profile"`
}

func (h *Handler) analyzeDocument(c *gin.Context) {
	var req contextRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)
	h.run(c, Submission{
		UserID:         middleware.UserIDFromContext(c),
		DocumentID:     documentID,
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	})
}

func (h *Handler) analyzeText(c *gin.Context) {
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}
	h.run(c, Submission{
		UserID:         middleware.UserIDFromContext(c),
		Fields:         req.Fields,
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	})
}

func (h *Handler) analyzeProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	h.run(c, Submission{
		UserID:         middleware.UserIDFromContext(c),
		Payload:        req.Profile,
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	})
}

func (h *Handler) run(c *gin.Context, sub Submission) {
	ctx := c.Request.Context()
	out, err := h.Svc.Run(ctx, sub)
	c.Set(middleware.OutcomeKey, string(out.Kind))
	c.Set(middleware.TierKey, string(out.Completeness.Tier))
	if out.Analysis != nil {
		c.Set(middleware.AnalysisIDKey, out.Analysis.ID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

// enqueueProfile hands a payload to the worker and returns the analysis id
// the result will be stored under.
func (h *Handler) enqueueProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Profile == nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "profile is required", gin.H{"field": "profile"})
		return
	}
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		writeError(c, ErrUnauthorized)
		return
	}
	if err := validateContext(Submission{TargetRole: req.TargetRole, JobDescription: req.JobDescription}); err != nil {
		writeError(c, err)
		return
	}

	requestID := middleware.RequestIDFromContext(c)
	msg := queue.Message{
		Version:        queue.MessageVersion,
		RequestID:      requestID,
		EnqueuedAt:     h.now().UTC().Format(time.RFC3339),
		AnalysisID:     uuid.NewString(),
		UserID:         userID,
		Payload:        req.Profile,
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	}
	c.Set(middleware.AnalysisIDKey, msg.AnalysisID)

	if h.Queue != nil {
		if err := h.Queue.Send(c.Request.Context(), msg); err != nil {
			telemetry.ErrorContext(c.Request.Context(), "analysis.enqueue_failed", map[string]any{
				"user_id":     userID,
				"analysis_id": msg.AnalysisID,
				"queue_full":  errors.Is(err, queue.ErrQueueFull),
				"error":       sanitizeError(err),
			})
			respond.Error(c, http.StatusServiceUnavailable, respond.CodeQueueUnavailable, "analysis queue unavailable, try again", gin.H{"retryable": true})
			return
		}
	} else {
		ctx := telemetry.Detach(telemetry.WithRequestID(c.Request.Context(), requestID))
		go h.runDetached(ctx, SubmissionFromMessage(msg))
	}

	respond.Accepted(c, gin.H{
		"analysisId": msg.AnalysisID,
		"requestId":  requestID,
		"status":     "queued",
	})
}

func (h *Handler) runDetached(ctx context.Context, sub Submission) {
	if _, err := h.Svc.Run(ctx, sub); err != nil {
		telemetry.ErrorContext(ctx, "analysis.async_failed", map[string]any{
			"user_id":     sub.UserID,
			"analysis_id": sub.ID,
			"error":       sanitizeError(err),
		})
	}
}

func (h *Handler) savePending(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	ctx := c.Request.Context()
	analysis, err := h.Svc.SavePending(ctx, userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.AnalysisIDKey, analysis.ID)
	respond.Created(c, analysis)
}

func (h *Handler) get(c *gin.Context) {
	analysis, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) list(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize)
	offset := queryInt(c, "offset", 0)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []Analysis{}
	}
	respond.OK(c, items)
}

func (h *Handler) summary(c *gin.Context) {
	agg, err := h.Svc.Summary(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, agg)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// SubmissionFromMessage maps a queued job onto a pipeline submission.
func SubmissionFromMessage(msg queue.Message) Submission {
	return Submission{
		ID:             msg.AnalysisID,
		UserID:         msg.UserID,
		DocumentID:     msg.DocumentID,
		Fields:         msg.Fields,
		Payload:        msg.Payload,
		TargetRole:     msg.TargetRole,
		JobDescription: msg.JobDescription,
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, "request body too large", nil)
			return false
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid JSON body", nil)
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, "request body too large", nil)
		return false
	}
	if len(raw) == 0 {
		return true
	}
	if err := binding.JSON.BindBody(raw, dst); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid JSON body", nil)
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func writeError(c *gin.Context, err error) {
	var (
		verr    *profile.ValidationError
		persist *PersistenceError
		limit   *usage.LimitError
	)
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, verr.Reason, gin.H{"field": verr.Field})
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "authentication required", nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPendingNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "analysis not found", nil)
	case errors.As(err, &limit):
		respond.Error(c, http.StatusTooManyRequests, respond.CodeLimitReached, "You've reached your analysis limit.", gin.H{
			"field":    "usage",
			"limit":    limit.Usage.Limit,
			"used":     limit.Usage.Used,
			"resetsAt": limit.Usage.ResetsAt,
		})
	case errors.Is(err, usage.ErrLimitReached):
		respond.Error(c, http.StatusTooManyRequests, respond.CodeLimitReached, "You've reached your analysis limit.", gin.H{"field": "usage"})
	case errors.As(err, &persist):
		respond.Error(c, http.StatusServiceUnavailable, respond.CodePersistenceFailed, "analysis computed but could not be saved", gin.H{
			"pendingId": persist.PendingID,
			"retryable": true,
		})
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		c.Abort()
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "analysis failed", nil)
	}
}
