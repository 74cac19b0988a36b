package domain

import "time"

// Article is the authoritative CMS record for a blog post. Non-draft
// articles are eligible for markdown generation.
type Article struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Content     string    `db:"content"`
	Description *string   `db:"description"`
	Image       *string   `db:"image"`
	Author      *string   `db:"author"`
	Tags        []string  `db:"tags"`
	Draft       bool      `db:"draft"`
	PublishDate time.Time `db:"publish_date"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
