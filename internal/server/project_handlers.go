package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
)

// searchLimit caps quick-search results
const searchLimit = 5

// ProjectRequest is the body of project create and update requests
type ProjectRequest struct {
	Title       string   `json:"title" binding:"required" validate:"required,max=200"`
	Description string   `json:"description" binding:"required" validate:"required"`
	Image       string   `json:"image" binding:"required" validate:"required"`
	Tags        []string `json:"tags" validate:"dive,required,max=50"`
	GithubURL   *string  `json:"github_url" validate:"omitempty,url"`
	VercelURL   *string  `json:"vercel_url" validate:"omitempty,url"`
	Status      string   `json:"status" validate:"projectstatus"`
	Featured    bool     `json:"featured"`
	InMyList    bool     `json:"in_my_list"`
	CategoryID  *string  `json:"category_id"`
}

func (r *ProjectRequest) apply(p *models.Project) {
	p.Title = strings.TrimSpace(r.Title)
	p.Description = r.Description
	p.Image = r.Image
	p.Tags = r.Tags
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.GithubURL = r.GithubURL
	p.VercelURL = r.VercelURL
	p.Status = r.Status
	if p.Status == "" {
		p.Status = models.ProjectStatusInProgress
	}
	p.Featured = r.Featured
	p.InMyList = r.InMyList
	p.CategoryID = r.CategoryID
}

func (s *Server) bindProject(c *gin.Context) (*ProjectRequest, bool) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return nil, false
	}
	if err := s.validator.Struct(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return nil, false
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		var category models.Category
		if err := models.FindByID(s.db, *req.CategoryID, &category); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return nil, false
		}
	} else {
		req.CategoryID = nil
	}
	return &req, true
}

// @Router /api/projects [get]
// @Param category query string false "Category name"
// @Param featured query bool false "Only featured projects"
// @Param my_list query bool false "Only projects on My List"
// @Success 200 {array} models.Project
func (s *Server) listProjects(c *gin.Context) {
	query := s.db.Preload("Category").Order("created_at DESC")

	if category := c.Query("category"); category != "" {
		query = query.Where("category_id IN (?)", s.db.Model(&models.Category{}).Select("id").Where("name = ?", category))
	}
	if c.Query("featured") == "true" {
		query = query.Where("featured = ?", true)
	}
	if c.Query("my_list") == "true" {
		query = query.Where("in_my_list = ?", true)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list projects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

// @Router /api/projects/{id} [get]
// @Param id path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} map[string]interface{}
func (s *Server) getProject(c *gin.Context) {
	var project models.Project
	if err := models.FindByIDWithPreload(s.db, c.Param("id"), &project, "Category"); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// @Router /api/projects/search [get]
// @Param q query string true "Title fragment or exact tag"
// @Success 200 {array} models.Project
func (s *Server) searchProjects(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, []models.Project{})
		return
	}

	var projects []models.Project
	err := s.db.Preload("Category").
		Where("title LIKE ? ESCAPE '\\' OR EXISTS (SELECT 1 FROM json_each(projects.tags) WHERE json_each.value = ?)",
			"%"+escapeLike(q)+"%", q).
		Order("featured DESC").
		Order("created_at DESC").
		Limit(searchLimit).
		Find(&projects).Error
	if err != nil {
		s.logger.Error().Err(err).Str("query", q).Msg("Failed to search projects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// @Router /api/admin/projects [post]
// @Param body body ProjectRequest true "Project"
// @Success 201 {object} models.Project
func (s *Server) createProject(c *gin.Context) {
	req, ok := s.bindProject(c)
	if !ok {
		return
	}

	var project models.Project
	req.apply(&project)

	if err := s.db.Create(&project).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("project_id", project.ID).Str("created_by", sessionData.UserID).Msg("Project created")

	c.JSON(http.StatusCreated, project)
}

// @Router /api/admin/projects/{id} [put]
// @Param id path string true "Project ID"
// @Param body body ProjectRequest true "Project"
// @Success 200 {object} models.Project
func (s *Server) updateProject(c *gin.Context) {
	var project models.Project
	if err := models.FindByID(s.db, c.Param("id"), &project); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	req, ok := s.bindProject(c)
	if !ok {
		return
	}
	req.apply(&project)

	if err := s.db.Omit("Category").Save(&project).Error; err != nil {
		s.logger.Error().Err(err).Str("project_id", project.ID).Msg("Failed to update project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// @Router /api/admin/projects/{id} [delete]
// @Param id path string true "Project ID"
// @Success 204
func (s *Server) deleteProject(c *gin.Context) {
	result := s.db.Where("id = ?", c.Param("id")).Delete(&models.Project{})
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to delete project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("project_id", c.Param("id")).Str("deleted_by", sessionData.UserID).Msg("Project deleted")

	c.Status(http.StatusNoContent)
}
