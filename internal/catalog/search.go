package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

const defaultLimit = 10

// Search queries the volumes API and maps the results to book drafts.
// An empty result set returns an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]domain.BookDraft, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", defaultLimit))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	searchURL := c.baseURL + "?" + params.Encode()

	c.logger.Debug("searching catalog",
		"query", query,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	var volumesResp volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&volumesResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	c.logger.Debug("catalog search results",
		"query", query,
		"count", len(volumesResp.Items),
	)

	results := make([]domain.BookDraft, 0, len(volumesResp.Items))
	for i := range volumesResp.Items {
		results = append(results, mapVolume(&volumesResp.Items[i]))
	}

	return results, nil
}

// mapVolume converts a volumes API item into a book draft.
func mapVolume(v *volume) domain.BookDraft {
	info := &v.VolumeInfo

	author := "Unknown Author"
	if len(info.Authors) > 0 {
		author = strings.Join(info.Authors, ", ")
	}

	thumbnail := info.ImageLinks.Thumbnail
	if thumbnail == "" {
		thumbnail = info.ImageLinks.SmallThumbnail
	}

	return domain.BookDraft{
		Title:         info.Title,
		Author:        author,
		ISBN:          pickISBN(info.IndustryIdentifiers),
		Thumbnail:     thumbnail,
		Description:   info.Description,
		PageCount:     info.PageCount,
		PublishedDate: info.PublishedDate,
		Categories:    info.Categories,
		AverageRating: info.AverageRating,
		RatingsCount:  info.RatingsCount,
		Language:      info.Language,
		Publisher:     info.Publisher,
	}
}

// pickISBN prefers ISBN_13 over ISBN_10; returns "" when neither exists.
func pickISBN(identifiers []industryIdentifier) string {
	var isbn10 string
	for _, id := range identifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}
