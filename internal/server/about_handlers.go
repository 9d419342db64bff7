package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
)

// AboutRequest replaces the about profile
type AboutRequest struct {
	Name        string                 `json:"name" binding:"required" validate:"required,max=100"`
	Bio         *string                `json:"bio"`
	Status      *string                `json:"status"`
	Email       *string                `json:"email" validate:"omitempty,email"`
	Phone       *string                `json:"phone"`
	Location    *string                `json:"location"`
	Avatar      *string                `json:"avatar"`
	Timeline    []models.TimelineEntry `json:"timeline" validate:"dive"`
	Skills      map[string][]string    `json:"skills"`
	SocialLinks map[string]string      `json:"social_links" validate:"dive,url"`
}

// @Router /api/about [get]
// @Success 200 {object} models.About
// @Failure 404 {object} map[string]interface{}
func (s *Server) getAbout(c *gin.Context) {
	var about models.About
	if err := s.db.Order("created_at ASC").First(&about).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "About profile not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load about profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, about)
}

// @Router /api/admin/about [put]
// @Param body body AboutRequest true "About profile"
// @Success 200 {object} models.About
func (s *Server) upsertAbout(c *gin.Context) {
	var req AboutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	var about models.About
	if err := s.db.Order("created_at ASC").First(&about).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Msg("Failed to load about profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	about.Name = req.Name
	about.Bio = req.Bio
	about.Status = req.Status
	about.Email = req.Email
	about.Phone = req.Phone
	about.Location = req.Location
	about.Avatar = req.Avatar
	about.Timeline = req.Timeline
	about.Skills = req.Skills
	about.SocialLinks = req.SocialLinks

	// Save inserts when the row does not exist yet
	if err := s.db.Save(&about).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to save about profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save about profile"})
		return
	}

	c.JSON(http.StatusOK, about)
}
