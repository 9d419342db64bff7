package client

import (
	"time"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// User is the account behind a token
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Category groups projects into rows
type Category struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Icon         *string `json:"icon"`
	DisplayOrder int     `json:"display_order"`
}

// Project is a portfolio entry
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Tags        []string  `json:"tags"`
	GithubURL   *string   `json:"github_url"`
	VercelURL   *string   `json:"vercel_url"`
	Status      string    `json:"status"`
	Featured    bool      `json:"featured"`
	InMyList    bool      `json:"in_my_list"`
	CategoryID  *string   `json:"category_id"`
	Category    *Category `json:"categories"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryName is the project's category or an empty string
func (p Project) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// Banner is a hero slide
type Banner struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Subtitle        *string `json:"subtitle"`
	Description     string  `json:"description"`
	ImageURL        string  `json:"image_url"`
	MatchPercentage int     `json:"match_percentage"`
	Genre           string  `json:"genre"`
	Year            int     `json:"year"`
	Rating          string  `json:"rating"`
	DisplayOrder    int     `json:"display_order"`
	IsActive        bool    `json:"is_active"`
}

// TimelineEntry is one career step
type TimelineEntry struct {
	Period      string `json:"period"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// About is the about-me profile
type About struct {
	Name        string              `json:"name"`
	Bio         *string             `json:"bio"`
	Status      *string             `json:"status"`
	Email       *string             `json:"email"`
	Phone       *string             `json:"phone"`
	Location    *string             `json:"location"`
	Avatar      *string             `json:"avatar"`
	Timeline    []TimelineEntry     `json:"timeline"`
	Skills      map[string][]string `json:"skills"`
	SocialLinks map[string]string   `json:"social_links"`
}

// Stats are the admin dashboard counters
type Stats struct {
	TotalProjects    int64 `json:"total_projects"`
	LiveProjects     int64 `json:"live_projects"`
	FeaturedProjects int64 `json:"featured_projects"`
	Categories       int64 `json:"categories"`
}

// ProjectInput creates a project
type ProjectInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Tags        []string `json:"tags,omitempty"`
	GithubURL   *string  `json:"github_url,omitempty"`
	VercelURL   *string  `json:"vercel_url,omitempty"`
	Status      string   `json:"status,omitempty"`
	Featured    bool     `json:"featured"`
	InMyList    bool     `json:"in_my_list"`
	CategoryID  *string  `json:"category_id,omitempty"`
}

// CategoryInput creates a category
type CategoryInput struct {
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	Icon         *string `json:"icon,omitempty"`
	DisplayOrder int     `json:"display_order"`
}

// BannerInput creates a banner. Nil pointers take the server defaults.
type BannerInput struct {
	Title           string  `json:"title"`
	Subtitle        *string `json:"subtitle,omitempty"`
	Description     string  `json:"description"`
	ImageURL        string  `json:"image_url"`
	MatchPercentage *int    `json:"match_percentage,omitempty"`
	Genre           string  `json:"genre,omitempty"`
	Year            int     `json:"year,omitempty"`
	Rating          string  `json:"rating,omitempty"`
	DisplayOrder    int     `json:"display_order"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// Input copies the editable fields, the starting point of an update
func (p Project) Input() ProjectInput {
	return ProjectInput{
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		Tags:        p.Tags,
		GithubURL:   p.GithubURL,
		VercelURL:   p.VercelURL,
		Status:      p.Status,
		Featured:    p.Featured,
		InMyList:    p.InMyList,
		CategoryID:  p.CategoryID,
	}
}

// Input copies the editable fields, the starting point of an update
func (c Category) Input() CategoryInput {
	return CategoryInput{
		Name:         c.Name,
		Description:  c.Description,
		Icon:         c.Icon,
		DisplayOrder: c.DisplayOrder,
	}
}

// Input copies the editable fields, the starting point of an update
func (b Banner) Input() BannerInput {
	match := b.MatchPercentage
	active := b.IsActive
	return BannerInput{
		Title:           b.Title,
		Subtitle:        b.Subtitle,
		Description:     b.Description,
		ImageURL:        b.ImageURL,
		MatchPercentage: &match,
		Genre:           b.Genre,
		Year:            b.Year,
		Rating:          b.Rating,
		DisplayOrder:    b.DisplayOrder,
		IsActive:        &active,
	}
}
