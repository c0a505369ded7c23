package domain

import "time"

// ShelfName identifies one of the three fixed shelves.
type ShelfName string

const (
	// ShelfWantToRead holds books the user plans to read.
	ShelfWantToRead ShelfName = "Want to Read"
	// ShelfCurrentlyReading holds books the user is reading now.
	ShelfCurrentlyReading ShelfName = "Currently Reading"
	// ShelfFinished holds books the user has finished.
	ShelfFinished ShelfName = "Finished Reading"
)

// ShelfNames returns the shelves in display order.
func ShelfNames() []ShelfName {
	return []ShelfName{ShelfWantToRead, ShelfCurrentlyReading, ShelfFinished}
}

// Valid reports whether the name is one of the three fixed shelves.
func (n ShelfName) Valid() bool {
	switch n {
	case ShelfWantToRead, ShelfCurrentlyReading, ShelfFinished:
		return true
	}
	return false
}

// Bookshelf is a user's complete reading state: three named shelves,
// each an ordered list of books. A book lives on exactly one shelf.
type Bookshelf struct {
	Shelves map[ShelfName][]Book `json:"shelves"`
}

// NewBookshelf creates an empty bookshelf with all three shelves present.
func NewBookshelf() *Bookshelf {
	return &Bookshelf{
		Shelves: map[ShelfName][]Book{
			ShelfWantToRead:       {},
			ShelfCurrentlyReading: {},
			ShelfFinished:         {},
		},
	}
}

// Add appends a book to the target shelf.
// An invalid target falls back to Want to Read.
func (b *Bookshelf) Add(book Book, target ShelfName) {
	if !target.Valid() {
		target = ShelfWantToRead
	}
	b.Shelves[target] = append(b.Shelves[target], book)
}

// Move removes the book at index on from and appends it to to,
// refreshing its UpdatedAt. Same-shelf moves and out-of-range indexes
// are no-ops; the return value reports whether the shelf changed.
func (b *Bookshelf) Move(from ShelfName, index int, to ShelfName) bool {
	if from == to {
		return false
	}
	if !from.Valid() || !to.Valid() {
		return false
	}
	src := b.Shelves[from]
	if index < 0 || index >= len(src) {
		return false
	}

	book := src[index]
	b.Shelves[from] = append(src[:index:index], src[index+1:]...)

	book.UpdatedAt = time.Now()
	b.Shelves[to] = append(b.Shelves[to], book)
	return true
}

// Remove deletes the book at index on the shelf.
// Out-of-range indexes are a no-op.
func (b *Bookshelf) Remove(shelf ShelfName, index int) bool {
	books := b.Shelves[shelf]
	if index < 0 || index >= len(books) {
		return false
	}
	b.Shelves[shelf] = append(books[:index:index], books[index+1:]...)
	return true
}

// Update applies a partial update to the book at index on the shelf.
// Out-of-range indexes are a no-op.
func (b *Bookshelf) Update(shelf ShelfName, index int, patch BookPatch) bool {
	books := b.Shelves[shelf]
	if index < 0 || index >= len(books) {
		return false
	}
	patch.Apply(&books[index])
	return true
}

// Find returns the shelf and index of the book with the given ID,
// or ("", -1, false) when it is not shelved.
func (b *Bookshelf) Find(bookID string) (ShelfName, int, bool) {
	for _, name := range ShelfNames() {
		for i, book := range b.Shelves[name] {
			if book.ID == bookID {
				return name, i, true
			}
		}
	}
	return "", -1, false
}

// TotalBooks returns the number of books across all shelves.
func (b *Bookshelf) TotalBooks() int {
	total := 0
	for _, books := range b.Shelves {
		total += len(books)
	}
	return total
}

// Clone returns a deep copy of the bookshelf.
// Used to hand out snapshots that outlive the session lock.
func (b *Bookshelf) Clone() *Bookshelf {
	clone := &Bookshelf{Shelves: make(map[ShelfName][]Book, len(b.Shelves))}
	for name, books := range b.Shelves {
		copied := make([]Book, len(books))
		copy(copied, books)
		for i := range copied {
			if books[i].Categories != nil {
				copied[i].Categories = append([]string(nil), books[i].Categories...)
			}
		}
		clone.Shelves[name] = copied
	}
	return clone
}
