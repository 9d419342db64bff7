package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
)

// StatsResponse feeds the admin dashboard
type StatsResponse struct {
	TotalProjects    int64 `json:"total_projects"`
	LiveProjects     int64 `json:"live_projects"`
	FeaturedProjects int64 `json:"featured_projects"`
	Categories       int64 `json:"categories"`
}

// GrantAdminRequest names the account to promote
type GrantAdminRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Router /api/admin/stats [get]
// @Success 200 {object} StatsResponse
func (s *Server) getStats(c *gin.Context) {
	var stats StatsResponse

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalProjects, s.db.Model(&models.Project{})},
		{&stats.LiveProjects, s.db.Model(&models.Project{}).Where("status = ?", models.ProjectStatusLive)},
		{&stats.FeaturedProjects, s.db.Model(&models.Project{}).Where("featured = ?", true)},
		{&stats.Categories, s.db.Model(&models.Category{})},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to compute stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// @Router /api/admin/roles [post]
// @Param body body GrantAdminRequest true "Account to promote"
// @Success 201 {object} RoleResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
func (s *Server) grantAdmin(c *gin.Context) {
	var req GrantAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	isAdmin, err := models.HasRole(s.db, user.ID, models.RoleAdmin)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to look up role")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if isAdmin {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already an admin"})
		return
	}

	if err := s.db.Create(&models.UserRole{UserID: user.ID, Role: models.RoleAdmin}).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to grant admin role")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant role"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("granted_by", sessionData.UserID).
		Msg("Admin role granted")

	c.JSON(http.StatusCreated, RoleResponse{Role: string(models.RoleAdmin), HasRole: true})
}
