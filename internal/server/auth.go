package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
)

type identityClaim struct {
	User struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Name     string `json:"name"`
			FullName string `json:"full_name"`
		} `json:"user_metadata"`
	} `json:"user"`
}

type profileResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Credits int64  `json:"credits"`
	IsAdmin bool   `json:"isAdmin"`
}

// UpsertProfile takes a server-trusted identity claim and materializes
// the profile row. It is called by the auth callback, not by browsers.
func (s *Server) UpsertProfile(c *gin.Context) {
	var claim identityClaim
	if err := c.ShouldBindJSON(&claim); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if _, err := uuid.Parse(strings.TrimSpace(claim.User.ID)); err != nil {
		AbortWithError(c, profiledomain.ErrInvalidID)
		return
	}

	req := profiledomain.UpsertProfileRequest{
		ID:    strings.TrimSpace(claim.User.ID),
		Email: strings.TrimSpace(claim.User.Email),
	}
	name := strings.TrimSpace(claim.User.UserMetadata.Name)
	if name == "" {
		name = strings.TrimSpace(claim.User.UserMetadata.FullName)
	}
	if name != "" {
		req.Name = &name
	}

	profile, err := s.profileSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": toProfileResponse(profile),
	})
}

func (s *Server) GetProfile(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	profile, err := s.profileSvc.GetByID(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": toProfileResponse(profile),
	})
}

func toProfileResponse(profile profiledomain.Profile) profileResponse {
	resp := profileResponse{
		ID:      profile.ID,
		Email:   profile.Email,
		Credits: profile.Credits,
		IsAdmin: profile.IsAdmin,
	}
	if profile.Name != nil {
		resp.Name = *profile.Name
	}
	return resp
}
