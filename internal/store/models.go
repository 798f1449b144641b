package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Base carries the columns every managed content row shares.
type Base struct {
	ID        string    `json:"id"`
	Visible   bool      `json:"visible"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) Meta() *Base { return b }

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Category struct {
	Base
	Name        string `json:"name" validate:"required,max=80"`
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,max=32"`
}

func (c *Category) fields() []any {
	return []any{&c.Name, &c.Slug, &c.Description, &c.Color}
}

type Project struct {
	Base
	Title      string     `json:"title" validate:"required,max=200"`
	Slug       string     `json:"slug" validate:"omitempty,max=120"`
	Summary    string     `json:"summary" validate:"max=1000"`
	Content    string     `json:"content"`
	ImageURL   string     `json:"imageUrl" validate:"omitempty,max=2048"`
	Gallery    StringList `json:"gallery" validate:"max=30,dive,max=2048"`
	TechStack  StringList `json:"techStack" validate:"max=40,dive,max=60"`
	GithubURL  string     `json:"githubUrl" validate:"omitempty,url"`
	LiveURL    string     `json:"liveUrl" validate:"omitempty,url"`
	CategoryID *string    `json:"categoryId"`
	Featured   bool       `json:"featured"`
}

func (p *Project) fields() []any {
	return []any{&p.Title, &p.Slug, &p.Summary, &p.Content, &p.ImageURL, &p.Gallery, &p.TechStack,
		&p.GithubURL, &p.LiveURL, &p.CategoryID, &p.Featured}
}

type Post struct {
	Base
	Title          string     `json:"title" validate:"required,max=200"`
	Slug           string     `json:"slug" validate:"omitempty,max=120"`
	Excerpt        string     `json:"excerpt" validate:"max=1000"`
	Content        string     `json:"content"`
	CoverImage     string     `json:"coverImage" validate:"omitempty,max=2048"`
	Tags           StringList `json:"tags" validate:"max=20,dive,max=50"`
	CategoryID     *string    `json:"categoryId"`
	Featured       bool       `json:"featured"`
	PublishedAt    *time.Time `json:"publishedAt"`
	ReadingMinutes int        `json:"readingMinutes"`
}

func (p *Post) fields() []any {
	return []any{&p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.CoverImage, &p.Tags, &p.CategoryID,
		&p.Featured, &p.PublishedAt, &p.ReadingMinutes}
}

type Testimonial struct {
	Base
	Name      string `json:"name" validate:"required,max=120"`
	Role      string `json:"role" validate:"max=120"`
	Company   string `json:"company" validate:"max=120"`
	Content   string `json:"content" validate:"required,max=4000"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,max=2048"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Featured  bool   `json:"featured"`
}

func (t *Testimonial) fields() []any {
	return []any{&t.Name, &t.Role, &t.Company, &t.Content, &t.AvatarURL, &t.Rating, &t.Featured}
}

type Experience struct {
	Base
	Company     string     `json:"company" validate:"required,max=160"`
	Position    string     `json:"position" validate:"required,max=160"`
	Location    string     `json:"location" validate:"max=160"`
	StartDate   string     `json:"startDate" validate:"omitempty,max=32"`
	EndDate     string     `json:"endDate" validate:"omitempty,max=32"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
	TechStack   StringList `json:"techStack" validate:"max=40,dive,max=60"`
}

func (e *Experience) fields() []any {
	return []any{&e.Company, &e.Position, &e.Location, &e.StartDate, &e.EndDate, &e.Current,
		&e.Description, &e.TechStack}
}

type Education struct {
	Base
	Institution string `json:"institution" validate:"required,max=160"`
	Degree      string `json:"degree" validate:"max=160"`
	Field       string `json:"field" validate:"max=160"`
	StartDate   string `json:"startDate" validate:"omitempty,max=32"`
	EndDate     string `json:"endDate" validate:"omitempty,max=32"`
	Description string `json:"description"`
}

func (e *Education) fields() []any {
	return []any{&e.Institution, &e.Degree, &e.Field, &e.StartDate, &e.EndDate, &e.Description}
}

type Skill struct {
	Base
	Name     string `json:"name" validate:"required,max=80"`
	Category string `json:"category" validate:"max=80"`
	Level    int    `json:"level" validate:"min=0,max=100"`
	Icon     string `json:"icon" validate:"max=120"`
}

func (s *Skill) fields() []any {
	return []any{&s.Name, &s.Category, &s.Level, &s.Icon}
}

// IdeaNode is a note on the money idea canvas. Connections hold sibling node
// ids exactly as the client sent them.
type IdeaNode struct {
	Base
	Title          string          `json:"title" validate:"required,max=200"`
	Content        string          `json:"content"`
	Color          string          `json:"color" validate:"omitempty,max=32"`
	X              float64         `json:"x"`
	Y              float64         `json:"y"`
	Width          float64         `json:"width" validate:"gte=0"`
	Height         float64         `json:"height" validate:"gte=0"`
	Connections    StringList      `json:"connections" validate:"max=200"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
	Tags           StringList      `json:"tags" validate:"max=20,dive,max=50"`
}

func (n *IdeaNode) fields() []any {
	return []any{&n.Title, &n.Content, &n.Color, &n.X, &n.Y, &n.Width, &n.Height, &n.Connections,
		&n.EstimatedValue, &n.Tags}
}

type Profile struct {
	Name      string            `json:"name" validate:"max=120"`
	Headline  string            `json:"headline" validate:"max=200"`
	Bio       string            `json:"bio"`
	AvatarURL string            `json:"avatarUrl" validate:"omitempty,max=2048"`
	Email     string            `json:"email" validate:"omitempty,email"`
	Location  string            `json:"location" validate:"max=120"`
	ResumeURL string            `json:"resumeUrl" validate:"omitempty,max=2048"`
	Socials   map[string]string `json:"socials"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type Translation struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entityType" validate:"required,max=40"`
	EntityID   string    `json:"entityId" validate:"required,max=80"`
	Locale     string    `json:"locale" validate:"required,max=16"`
	Field      string    `json:"field" validate:"required,max=60"`
	Value      string    `json:"value"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Chat struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type ContactMessage struct {
	ID        string     `json:"id"`
	Name      string     `json:"name" validate:"required,max=120"`
	Email     string     `json:"email" validate:"required,email"`
	Subject   string     `json:"subject" validate:"max=200"`
	Message   string     `json:"message" validate:"required,max=5000"`
	ReadAt    *time.Time `json:"readAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Counts is a total/visible pair for dashboard statistics.
type Counts struct {
	Total   int `json:"total"`
	Visible int `json:"visible"`
}

type OrderItem struct {
	ID    string `json:"id" validate:"required"`
	Order int    `json:"order"`
}
