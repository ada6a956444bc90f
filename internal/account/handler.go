package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

const guestHeader = "X-Guest-Id"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/claim-guest", h.claimGuest)
}

type claimRequest struct {
	GuestID string `json:"guestId"`
}

// claimGuest moves the caller's former guest history onto their account.
// The guest id comes from the X-Guest-Id header the guest session used, or
// from a {"guestId"} body when the browser no longer sends the header.
func (h *Handler) claimGuest(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "service unavailable", nil)
		return
	}
	authedUserID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if middleware.IsGuest(c) || authedUserID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "login required", nil)
		return
	}

	guestID := strings.TrimSpace(c.GetHeader(guestHeader))
	if guestID == "" && c.Request.ContentLength > 0 {
		var req claimRequest
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid JSON body", nil)
			return
		}
		guestID = strings.TrimSpace(req.GuestID)
	}
	if guestID == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "guest id required", gin.H{"field": guestHeader})
		return
	}
	if _, err := uuid.Parse(guestID); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid guest id", gin.H{"field": guestHeader})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), "guest:"+guestID, authedUserID)
	switch {
	case err == nil:
		respond.OK(c, result)
	case errors.Is(err, ErrClaimUnsupported):
		respond.Error(c, http.StatusNotImplemented, respond.CodeInternal, "guest claims are not available", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to claim guest data", nil)
	}
}
