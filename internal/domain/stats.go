package domain

import "sort"

// defaultPageCount stands in for books whose catalog entry has no page count.
const defaultPageCount = 250

// CategoryCount is a category and how many shelved books carry it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ReadingStats aggregates a bookshelf into the numbers shown on the stats view.
type ReadingStats struct {
	Shelves        map[ShelfName]int `json:"shelves"`
	TotalBooks     int               `json:"total_books"`
	CompletionRate float64           `json:"completion_rate"`
	TotalPagesRead int               `json:"total_pages_read"`
	TopCategories  []CategoryCount   `json:"top_categories"`
}

// ComputeStats derives reading statistics from a bookshelf.
// Pages read sums every shelved book, substituting defaultPageCount for
// books without a page count. Completion rate is finished over total,
// as a percentage. Top categories are the three most frequent across all
// shelves, ties broken alphabetically.
func ComputeStats(b *Bookshelf) ReadingStats {
	stats := ReadingStats{
		Shelves: make(map[ShelfName]int, len(b.Shelves)),
	}

	categoryCounts := make(map[string]int)
	for _, name := range ShelfNames() {
		books := b.Shelves[name]
		stats.Shelves[name] = len(books)
		stats.TotalBooks += len(books)

		for i := range books {
			pages := books[i].PageCount
			if pages <= 0 {
				pages = defaultPageCount
			}
			stats.TotalPagesRead += pages

			for _, cat := range books[i].Categories {
				categoryCounts[cat]++
			}
		}
	}

	if stats.TotalBooks > 0 {
		finished := b.Shelves[ShelfFinished]
		stats.CompletionRate = float64(len(finished)) / float64(stats.TotalBooks) * 100
	}

	counts := make([]CategoryCount, 0, len(categoryCounts))
	for cat, count := range categoryCounts {
		counts = append(counts, CategoryCount{Category: cat, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Category < counts[j].Category
	})
	if len(counts) > 3 {
		counts = counts[:3]
	}
	stats.TopCategories = counts

	return stats
}
