package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
)

// CategoryRequest is the body of category create and update requests
type CategoryRequest struct {
	Name         string  `json:"name" binding:"required" validate:"required,max=100"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon" validate:"omitempty,max=50"`
	DisplayOrder int     `json:"display_order" validate:"min=0"`
}

func (s *Server) bindCategory(c *gin.Context) (*CategoryRequest, bool) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return nil, false
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	return &req, true
}

// @Router /api/categories [get]
// @Success 200 {array} models.Category
func (s *Server) listCategories(c *gin.Context) {
	var categories []models.Category
	if err := s.db.Order("display_order ASC").Order("name ASC").Find(&categories).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list categories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// @Router /api/admin/categories [post]
// @Param body body CategoryRequest true "Category"
// @Success 201 {object} models.Category
func (s *Server) createCategory(c *gin.Context) {
	req, ok := s.bindCategory(c)
	if !ok {
		return
	}

	category := models.Category{
		Name:         req.Name,
		Description:  req.Description,
		Icon:         req.Icon,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.db.Create(&category).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

// @Router /api/admin/categories/{id} [put]
// @Param id path string true "Category ID"
// @Param body body CategoryRequest true "Category"
// @Success 200 {object} models.Category
func (s *Server) updateCategory(c *gin.Context) {
	var category models.Category
	if err := models.FindByID(s.db, c.Param("id"), &category); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	req, ok := s.bindCategory(c)
	if !ok {
		return
	}

	category.Name = req.Name
	category.Description = req.Description
	category.Icon = req.Icon
	category.DisplayOrder = req.DisplayOrder

	if err := s.db.Save(&category).Error; err != nil {
		s.logger.Error().Err(err).Str("category_id", category.ID).Msg("Failed to update category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// @Router /api/admin/categories/{id} [delete]
// @Param id path string true "Category ID"
// @Success 204
func (s *Server) deleteCategory(c *gin.Context) {
	id := c.Param("id")

	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Projects survive their category
		if err := tx.Model(&models.Project{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Category{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("category_id", id).Msg("Failed to delete category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
