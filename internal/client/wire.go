package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

// dateLayouts are tried in order when parsing upstream timestamps. Servers
// of different vintages disagree on the exact shape.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseDate parses leniently: an unparseable value is logged and replaced
// with the zero time rather than failing the whole fetch.
func parseDate(ctx context.Context, log logging.Logger, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	log.Warn(ctx, "unparseable upstream date, substituting zero", "value", raw)
	var zero time.Time
	return &zero
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type wireTag struct {
	ID   string `json:"id"`
	UUID string `json:"uuid,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type wirePost struct {
	ID              string    `json:"id,omitempty"`
	UUID            string    `json:"uuid,omitempty"`
	Slug            string    `json:"slug,omitempty"`
	Title           string    `json:"title"`
	Markdown        string    `json:"markdown"`
	HTML            *string   `json:"html,omitempty"`
	CustomExcerpt   *string   `json:"custom_excerpt,omitempty"`
	FeatureImage    *string   `json:"image,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       string    `json:"created_at,omitempty"`
	PublishedAt     string    `json:"published_at,omitempty"`
	UpdatedAt       string    `json:"updated_at,omitempty"`
	MetaTitle       *string   `json:"meta_title,omitempty"`
	MetaDescription *string   `json:"meta_description,omitempty"`
	Tags            []wireTag `json:"tags,omitempty"`
}

func (wp wirePost) toModel(ctx context.Context, log logging.Logger) models.Post {
	p := models.Post{
		ID:              wp.ID,
		UUID:            wp.UUID,
		Slug:            wp.Slug,
		Title:           wp.Title,
		Markdown:        wp.Markdown,
		HTML:            wp.HTML,
		CustomExcerpt:   wp.CustomExcerpt,
		FeatureImage:    wp.FeatureImage,
		Status:          models.PostStatus(wp.Status),
		CreatedAt:       parseDate(ctx, log, wp.CreatedAt),
		PublishedAt:     parseDate(ctx, log, wp.PublishedAt),
		MetaTitle:       wp.MetaTitle,
		MetaDescription: wp.MetaDescription,
		ConflictState:   models.ConflictNone,
	}
	if t := parseDate(ctx, log, wp.UpdatedAt); t != nil {
		p.UpdatedAt = *t
	}
	for _, wt := range wp.Tags {
		p.Tags = append(p.Tags, wt.toModel())
	}
	return p
}

func (wt wireTag) toModel() models.Tag {
	t := models.Tag{ID: wt.ID, UUID: wt.UUID, Name: wt.Name}
	if wt.Slug != "" {
		slug := wt.Slug
		t.Slug = &slug
	}
	return t
}

func fromModel(p *models.Post) wirePost {
	wp := wirePost{
		ID:              p.ID,
		UUID:            p.UUID,
		Slug:            p.Slug,
		Title:           p.Title,
		Markdown:        p.Markdown,
		HTML:            p.HTML,
		CustomExcerpt:   p.CustomExcerpt,
		FeatureImage:    p.FeatureImage,
		Status:          string(p.Status),
		CreatedAt:       formatDate(p.CreatedAt),
		PublishedAt:     formatDate(p.PublishedAt),
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		wp.UpdatedAt = formatDate(&t)
	}
	for _, t := range p.Tags {
		wt := wireTag{ID: t.ID, UUID: t.UUID, Name: t.Name}
		if t.Slug != nil {
			wt.Slug = *t.Slug
		}
		wp.Tags = append(wp.Tags, wt)
	}
	return wp
}

type wireRole struct {
	ID          int    `json:"id"`
	UUID        string `json:"uuid,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type wireUser struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Slug  string     `json:"slug"`
	Email string     `json:"email"`
	Image *string    `json:"image,omitempty"`
	Bio   *string    `json:"bio,omitempty"`
	Roles []wireRole `json:"roles,omitempty"`
}

func (wu wireUser) toModel() models.User {
	u := models.User{
		ID:           wu.ID,
		Name:         wu.Name,
		Slug:         wu.Slug,
		Email:        wu.Email,
		ProfileImage: wu.Image,
		Bio:          wu.Bio,
	}
	for _, wr := range wu.Roles {
		u.Roles = append(u.Roles, models.Role{ID: wr.ID, UUID: wr.UUID, Name: wr.Name, Description: wr.Description})
	}
	return u
}

// FlattenConfiguration turns the configuration envelope into flat
// key/value string pairs. Values arrive as arbitrary JSON: null becomes
// the empty string, a JSON string loses its quotes, anything else keeps
// its literal JSON text.
func FlattenConfiguration(body []byte) ([]models.ConfigurationParam, error) {
	var wire struct {
		Configuration []map[string]json.RawMessage `json:"configuration"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	var params []models.ConfigurationParam
	for _, entry := range wire.Configuration {
		for key, raw := range entry {
			params = append(params, models.ConfigurationParam{Key: key, Value: stringifyValue(raw)})
		}
	}
	return params, nil
}

func stringifyValue(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return trimmed
}
