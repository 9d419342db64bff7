package models

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Setting is a singleton row holding server-generated secrets
type Setting struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"`
}

// User is an account that can sign in. Sign-in requires a verified email.
type User struct {
	BaseModel
	Email             string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash      string `json:"-" gorm:"not null"`
	Name              string `json:"name"`
	EmailVerified     bool   `json:"email_verified" gorm:"not null;default:false"`
	VerificationToken string `json:"-" gorm:"index"`

	Roles []UserRole `json:"roles,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Role is the closed set of role assignments
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole rejects anything outside the known role set
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// UserRole assigns a role to a user. A user holds each role at most once.
type UserRole struct {
	BaseModel
	UserID string `json:"user_id" gorm:"not null;uniqueIndex:idx_user_role"`
	Role   Role   `json:"role" gorm:"type:varchar(16);not null;default:user;uniqueIndex:idx_user_role"`
}

// RevokedToken records a signed-out token until it would have expired anyway
type RevokedToken struct {
	TokenID   string    `json:"token_id" gorm:"primaryKey;type:varchar(26)"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

// Category groups projects into browse rows
type Category struct {
	BaseModel
	Name         string  `json:"name" gorm:"not null"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon"`
	DisplayOrder int     `json:"display_order" gorm:"not null;default:0"`
}

// Project statuses shown on cards. Live projects count towards dashboard stats.
const (
	ProjectStatusInProgress = "In Progress"
	ProjectStatusLive       = "Live"
)

// Project is a portfolio entry
type Project struct {
	BaseModel
	Title       string   `json:"title" gorm:"not null"`
	Description string   `json:"description" gorm:"not null"`
	Image       string   `json:"image" gorm:"not null"`
	Tags        []string `json:"tags" gorm:"serializer:json"`
	GithubURL   *string  `json:"github_url"`
	VercelURL   *string  `json:"vercel_url"`
	Status      string   `json:"status" gorm:"not null"`
	Featured    bool     `json:"featured" gorm:"not null;default:false"`
	InMyList    bool     `json:"in_my_list" gorm:"not null;default:false"`
	CategoryID  *string  `json:"category_id" gorm:"index"`

	Category *Category `json:"categories,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}

// TimelineEntry is one step of the about page career timeline
type TimelineEntry struct {
	Period      string `json:"period"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// About is the single "about me" profile row
type About struct {
	BaseModel
	Name        string              `json:"name" gorm:"not null"`
	Bio         *string             `json:"bio"`
	Status      *string             `json:"status"`
	Email       *string             `json:"email"`
	Phone       *string             `json:"phone"`
	Location    *string             `json:"location"`
	Avatar      *string             `json:"avatar"`
	Timeline    []TimelineEntry     `json:"timeline" gorm:"serializer:json"`
	Skills      map[string][]string `json:"skills" gorm:"serializer:json"`
	SocialLinks map[string]string   `json:"social_links" gorm:"serializer:json"`
}

// TableName keeps the singular table name
func (About) TableName() string {
	return "about"
}

// Banner is a hero carousel slide
type Banner struct {
	BaseModel
	Title           string  `json:"title" gorm:"not null"`
	Subtitle        *string `json:"subtitle"`
	Description     string  `json:"description" gorm:"not null"`
	ImageURL        string  `json:"image_url" gorm:"not null"`
	MatchPercentage int     `json:"match_percentage" gorm:"not null"`
	Genre           string  `json:"genre" gorm:"not null;default:Featured"`
	Year            int     `json:"year"`
	Rating          string  `json:"rating" gorm:"not null;default:PG-13"`
	DisplayOrder    int     `json:"display_order" gorm:"not null;default:0"`
	IsActive        bool    `json:"is_active" gorm:"not null"`
}

// Upload tracks an object written to a storage bucket
type Upload struct {
	BaseModel
	Bucket      string `json:"bucket" gorm:"not null;index"`
	Key         string `json:"key" gorm:"not null"`
	URL         string `json:"url" gorm:"not null"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&Setting{}, &User{}, &UserRole{}, &RevokedToken{},
		&Category{}, &Project{}, &About{}, &Banner{}, &Upload{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}

// HasRole reports whether a role row exists for the user
func HasRole(db *gorm.DB, userID string, role Role) (bool, error) {
	var count int64
	err := db.Model(&UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
