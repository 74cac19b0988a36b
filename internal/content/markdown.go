package content

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"terreiro_sync/internal/domain"
)

// Extension is the suffix of every generated content file.
const Extension = ".md"

// frontmatter is the header block the site's content loader parses back.
// Field names and order are part of the contract with that loader.
type frontmatter struct {
	Title       string   `yaml:"title"`
	PubDate     string   `yaml:"pubDate"`
	HeroImage   string   `yaml:"heroImage,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// Filename derives the markdown filename for an article: the stored slug,
// or the slugified title when no slug was set. Returns "" when neither
// yields a usable name.
func Filename(a *domain.Article) string {
	slug := a.Slug
	if slug == "" {
		slug = Slugify(a.Title)
	}
	if slug == "" {
		return ""
	}
	return slug + Extension
}

// Render produces the full file body: yaml frontmatter fenced by "---",
// a blank line, then the raw article content.
func Render(a *domain.Article) ([]byte, error) {
	fm := frontmatter{
		Title:   a.Title,
		PubDate: a.PublishDate.Format("2006-01-02"),
		Tags:    a.Tags,
	}
	if a.Image != nil {
		fm.HeroImage = *a.Image
	}
	if a.Description != nil {
		fm.Description = *a.Description
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	return []byte(fmt.Sprintf("---\n%s---\n\n%s", header, a.Content)), nil
}
