package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me returns the stored profile for logged-in users. Guests and users whose
// row is missing get the identity carried by the request.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	fromClaims := gin.H{
		"id":         userID,
		"isGuest":    middleware.IsGuest(c),
		"email":      middleware.UserEmailFromContext(c),
		"fullName":   middleware.UserNameFromContext(c),
		"pictureUrl": middleware.UserPictureFromContext(c),
	}
	if middleware.IsGuest(c) || h.Svc == nil {
		respond.OK(c, fromClaims)
		return
	}

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.OK(c, fromClaims)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to load user", nil)
		return
	}
	respond.OK(c, gin.H{
		"id":          user.ID,
		"isGuest":     false,
		"email":       user.Email,
		"fullName":    user.FullName,
		"pictureUrl":  user.PictureURL,
		"memberSince": user.CreatedAt,
		"lastLoginAt": user.LastLoginAt,
	})
}
