package models

type Author struct {
	ID      string   `json:"id" bson:"_id,omitempty"`
	Name    string   `json:"name" bson:"name"`
	Born    *int     `json:"born,omitempty" bson:"born,omitempty"`
	BookIDs []string `json:"-" bson:"books"`

	// Populated view of BookIDs, filled by the service layer.
	Books []*Book `json:"books" bson:"-"`
}

type Book struct {
	ID        string   `json:"id" bson:"_id,omitempty"`
	Title     string   `json:"title" bson:"title"`
	Published int      `json:"published" bson:"published"`
	AuthorID  string   `json:"-" bson:"author"`
	Genres    []string `json:"genres" bson:"genres"`

	// Populated view of AuthorID.
	Author *Author `json:"author,omitempty" bson:"-"`
}

// HasGenre reports whether the book lists the given genre. Genre lists keep
// whatever the client submitted, duplicates included, so this matches on any
// occurrence.
func (b *Book) HasGenre(genre string) bool {
	for _, g := range b.Genres {
		if g == genre {
			return true
		}
	}
	return false
}
