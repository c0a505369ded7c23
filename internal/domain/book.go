// Package domain contains the core types for the Shelfmark book tracker.
package domain

import "time"

// Book is a single tracked book on a shelf.
// Most fields come from the catalog search result that created it;
// only id and the timestamps are assigned server-side.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	ISBN          string    `json:"isbn,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Description   string    `json:"description,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	AverageRating float64   `json:"average_rating,omitempty"`
	RatingsCount  int       `json:"ratings_count,omitempty"`
	Language      string    `json:"language,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	AddedAt       time.Time `json:"added_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookDraft is a book as it comes out of catalog search, before it has
// an identity on a shelf. NewBook turns a draft into a Book.
type BookDraft struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	ISBN          string   `json:"isbn,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	AverageRating float64  `json:"average_rating,omitempty"`
	RatingsCount  int      `json:"ratings_count,omitempty"`
	Language      string   `json:"language,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
}

// NewBook creates a Book from a draft with the given ID.
// AddedAt and UpdatedAt are set to the same instant.
func NewBook(id string, draft BookDraft) Book {
	now := time.Now()
	return Book{
		ID:            id,
		Title:         draft.Title,
		Author:        draft.Author,
		ISBN:          draft.ISBN,
		Thumbnail:     draft.Thumbnail,
		Description:   draft.Description,
		PageCount:     draft.PageCount,
		PublishedDate: draft.PublishedDate,
		Categories:    draft.Categories,
		AverageRating: draft.AverageRating,
		RatingsCount:  draft.RatingsCount,
		Language:      draft.Language,
		Publisher:     draft.Publisher,
		AddedAt:       now,
		UpdatedAt:     now,
	}
}

// BookPatch holds a partial update for a book. Nil fields are left untouched.
type BookPatch struct {
	Title         *string   `json:"title,omitempty"`
	Author        *string   `json:"author,omitempty"`
	ISBN          *string   `json:"isbn,omitempty"`
	Thumbnail     *string   `json:"thumbnail,omitempty"`
	Description   *string   `json:"description,omitempty"`
	PageCount     *int      `json:"page_count,omitempty"`
	PublishedDate *string   `json:"published_date,omitempty"`
	Categories    *[]string `json:"categories,omitempty"`
	AverageRating *float64  `json:"average_rating,omitempty"`
	RatingsCount  *int      `json:"ratings_count,omitempty"`
	Language      *string   `json:"language,omitempty"`
	Publisher     *string   `json:"publisher,omitempty"`
}

// Apply merges the patch into the book and refreshes UpdatedAt.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.Thumbnail != nil {
		b.Thumbnail = *p.Thumbnail
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.PageCount != nil {
		b.PageCount = *p.PageCount
	}
	if p.PublishedDate != nil {
		b.PublishedDate = *p.PublishedDate
	}
	if p.Categories != nil {
		b.Categories = *p.Categories
	}
	if p.AverageRating != nil {
		b.AverageRating = *p.AverageRating
	}
	if p.RatingsCount != nil {
		b.RatingsCount = *p.RatingsCount
	}
	if p.Language != nil {
		b.Language = *p.Language
	}
	if p.Publisher != nil {
		b.Publisher = *p.Publisher
	}
	b.UpdatedAt = time.Now()
}
