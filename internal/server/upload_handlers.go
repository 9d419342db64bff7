package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/storage"
)

// UploadResponse points at the stored object
type UploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// @Router /api/admin/uploads/{bucket} [post]
// @Accept multipart/form-data
// @Param bucket path string true "banners or avatars"
// @Param file formData file true "Image"
// @Success 201 {object} UploadResponse
func (s *Server) uploadFile(c *gin.Context) {
	bucket := c.Param("bucket")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxObjectSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file", "details": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	obj, err := s.storage.Put(bucket, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnknownBucket):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, storage.ErrUnsupportedType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, storage.ErrObjectTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			s.logger.Error().Err(err).Str("bucket", bucket).Msg("Failed to store upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		}
		return
	}

	upload := models.Upload{
		Bucket:      obj.Bucket,
		Key:         obj.Key,
		URL:         obj.URL,
		Size:        obj.Size,
		ContentType: obj.ContentType,
	}
	if err := s.db.Create(&upload).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to record upload")
		if delErr := s.storage.Delete(obj.Bucket, obj.Key); delErr != nil {
			s.logger.Warn().Err(delErr).Msg("Failed to remove unrecorded object")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("bucket", obj.Bucket).
		Str("key", obj.Key).
		Int64("size", obj.Size).
		Str("uploaded_by", sessionData.UserID).
		Msg("File uploaded")

	c.JSON(http.StatusCreated, UploadResponse{ID: upload.ID, URL: upload.URL})
}
