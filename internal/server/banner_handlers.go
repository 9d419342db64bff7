package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
)

// Banner defaults applied when a request leaves the field out
const (
	defaultMatchPercentage = 97
	defaultGenre           = "Featured"
	defaultRating          = "PG-13"
)

// BannerRequest is the body of banner create and update requests
type BannerRequest struct {
	Title           string  `json:"title" binding:"required" validate:"required,max=200"`
	Subtitle        *string `json:"subtitle"`
	Description     string  `json:"description" binding:"required" validate:"required"`
	ImageURL        string  `json:"image_url" binding:"required" validate:"required"`
	MatchPercentage *int    `json:"match_percentage" validate:"omitempty,min=0,max=100"`
	Genre           string  `json:"genre" validate:"max=50"`
	Year            int     `json:"year" validate:"omitempty,min=1900,max=2100"`
	Rating          string  `json:"rating" validate:"max=10"`
	DisplayOrder    int     `json:"display_order" validate:"min=0"`
	IsActive        *bool   `json:"is_active"`
}

func (r *BannerRequest) apply(b *models.Banner) {
	b.Title = r.Title
	b.Subtitle = r.Subtitle
	b.Description = r.Description
	b.ImageURL = r.ImageURL
	b.MatchPercentage = defaultMatchPercentage
	if r.MatchPercentage != nil {
		b.MatchPercentage = *r.MatchPercentage
	}
	b.Genre = r.Genre
	if b.Genre == "" {
		b.Genre = defaultGenre
	}
	b.Year = r.Year
	b.Rating = r.Rating
	if b.Rating == "" {
		b.Rating = defaultRating
	}
	b.DisplayOrder = r.DisplayOrder
	b.IsActive = true
	if r.IsActive != nil {
		b.IsActive = *r.IsActive
	}
}

func (s *Server) bindBanner(c *gin.Context) (*BannerRequest, bool) {
	var req BannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return nil, false
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return nil, false
	}
	return &req, true
}

// @Router /api/banners [get]
// @Param active query bool false "Only active banners"
// @Success 200 {array} models.Banner
func (s *Server) listBanners(c *gin.Context) {
	query := s.db.Order("display_order ASC")
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var banners []models.Banner
	if err := query.Find(&banners).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list banners")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, banners)
}

// @Router /api/admin/banners [post]
// @Param body body BannerRequest true "Banner"
// @Success 201 {object} models.Banner
func (s *Server) createBanner(c *gin.Context) {
	req, ok := s.bindBanner(c)
	if !ok {
		return
	}

	var banner models.Banner
	req.apply(&banner)

	if err := s.db.Create(&banner).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create banner")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create banner"})
		return
	}

	c.JSON(http.StatusCreated, banner)
}

// @Router /api/admin/banners/{id} [put]
// @Param id path string true "Banner ID"
// @Param body body BannerRequest true "Banner"
// @Success 200 {object} models.Banner
func (s *Server) updateBanner(c *gin.Context) {
	var banner models.Banner
	if err := models.FindByID(s.db, c.Param("id"), &banner); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Banner not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find banner")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	req, ok := s.bindBanner(c)
	if !ok {
		return
	}
	req.apply(&banner)

	if err := s.db.Save(&banner).Error; err != nil {
		s.logger.Error().Err(err).Str("banner_id", banner.ID).Msg("Failed to update banner")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update banner"})
		return
	}

	c.JSON(http.StatusOK, banner)
}

// @Router /api/admin/banners/{id} [delete]
// @Param id path string true "Banner ID"
// @Success 204
func (s *Server) deleteBanner(c *gin.Context) {
	result := s.db.Where("id = ?", c.Param("id")).Delete(&models.Banner{})
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to delete banner")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete banner"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Banner not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
