package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/GShadowBroker/library-server/metrics"
	"github.com/GShadowBroker/library-server/models"
	"github.com/GShadowBroker/library-server/repository"
	"github.com/GShadowBroker/library-server/utils/errors"
)

// backRefRetries bounds the retry loop for the secondary writes that keep
// denormalized back-references in sync.
const backRefRetries = 3

// CatalogService owns the author/book write protocols. The store has no
// multi-document transactions, so AddBook orders its writes author-first
// (a book never references a missing author) and serializes the
// resolve-or-create step behind a per-author lock. Author mutations are
// field-level set/add writes, so AddBook's back-reference append and
// EditAuthor's born update can interleave without losing either.
type CatalogService struct {
	authors repository.AuthorRepository
	books   repository.BookRepository
	feed    *BookFeed
	locks   *keyedLock
}

func NewCatalogService(authors repository.AuthorRepository, books repository.BookRepository, feed *BookFeed) *CatalogService {
	return &CatalogService{
		authors: authors,
		books:   books,
		feed:    feed,
		locks:   newKeyedLock(),
	}
}

// AddBook creates a book, creating its author on first sight, and appends
// the book to the author's books list. The author-before-book ordering is
// deliberate: a failed back-reference append leaves an author whose books
// array is momentarily incomplete, which author queries tolerate by
// resolving books through the forward reference instead.
func (s *CatalogService) AddBook(ctx context.Context, title, authorName string, published int, genres []string) (*models.Book, error) {
	if CurrentUser(ctx) == nil {
		return nil, errors.ErrUnauthenticated
	}
	if len(title) < 3 || len(title) > 55 {
		return nil, errors.NewValidationError("title", "Title must be between 3 and 55 characters")
	}
	if len(authorName) < 3 || len(authorName) > 55 {
		return nil, errors.NewValidationError("author", "Author name must be between 3 and 55 characters")
	}
	if genres == nil {
		genres = []string{}
	}

	unlock := s.locks.Lock("author:" + authorName)
	defer unlock()

	author, created, err := s.resolveAuthor(ctx, authorName)
	if err != nil {
		return nil, err
	}

	book := &models.Book{
		Title:     title,
		Published: published,
		AuthorID:  author.ID,
		Genres:    genres,
	}
	if err := s.books.Create(ctx, book); err != nil {
		if err == repository.ErrDuplicateKey {
			return nil, errors.NewValidationError("title", "A book with this title already exists")
		}
		// A just-created author now has no books. That author stays; an
		// author without books is valid data.
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to save book", http.StatusInternalServerError)
	}
	if created {
		slog.Info("created author", "name", author.Name, "id", author.ID)
	}

	s.appendBookRef(ctx, author, book.ID)
	metrics.BooksAdded.Inc()

	if err := s.populateAuthor(ctx, author); err != nil {
		return nil, err
	}
	book.Author = author

	s.feed.Publish(ctx, book)
	return book, nil
}

// EditAuthor sets an author's birth year. The write touches only the born
// field, so it cannot clobber a books entry appended by a concurrent AddBook.
func (s *CatalogService) EditAuthor(ctx context.Context, name string, setBornTo int) (*models.Author, error) {
	if CurrentUser(ctx) == nil {
		return nil, errors.ErrUnauthenticated
	}
	if setBornTo > 9999 || setBornTo < -9999 {
		return nil, errors.NewValidationError("setBornTo", "Birth year must be valid")
	}

	author, err := s.authors.SetBorn(ctx, name, setBornTo)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to update author", http.StatusInternalServerError)
	}
	if author == nil {
		return nil, errors.NewNotFound("name", "Author not found")
	}
	if err := s.populateAuthor(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

// AllBooks lists books, optionally filtered by author name and/or genre.
// A named author that does not exist is an error; a genre that matches
// nothing is an empty list.
func (s *CatalogService) AllBooks(ctx context.Context, authorName, genre string) ([]*models.Book, error) {
	var books []*models.Book

	if authorName != "" {
		author, err := s.authors.FindByName(ctx, authorName)
		if err != nil {
			return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up author", http.StatusInternalServerError)
		}
		if author == nil {
			return nil, errors.NewNotFound("author", "Author not found")
		}
		// Resolved through the forward reference, not the author's books
		// array, so a lost back-reference append never hides a book.
		books, err = s.books.FindByAuthorID(ctx, author.ID)
		if err != nil {
			return nil, errors.Wrap(err, "DB_ERROR", "Failed to list books", http.StatusInternalServerError)
		}
	} else {
		var err error
		books, err = s.books.All(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "DB_ERROR", "Failed to list books", http.StatusInternalServerError)
		}
	}

	if genre != "" {
		filtered := make([]*models.Book, 0, len(books))
		for _, book := range books {
			if book.HasGenre(genre) {
				filtered = append(filtered, book)
			}
		}
		books = filtered
	}

	if err := s.populateBooks(ctx, books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []*models.Book{}
	}
	return books, nil
}

// AllAuthors lists every author with their books populated.
func (s *CatalogService) AllAuthors(ctx context.Context) ([]*models.Author, error) {
	authors, err := s.authors.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to list authors", http.StatusInternalServerError)
	}
	for _, author := range authors {
		if err := s.populateAuthor(ctx, author); err != nil {
			return nil, err
		}
	}
	if authors == nil {
		authors = []*models.Author{}
	}
	return authors, nil
}

func (s *CatalogService) AuthorCount(ctx context.Context) (int64, error) {
	return s.authors.Count(ctx)
}

func (s *CatalogService) BookCount(ctx context.Context) (int64, error) {
	return s.books.Count(ctx)
}

// resolveAuthor finds the author by exact name or creates it with an empty
// books list. The created flag distinguishes the two outcomes. A failed
// create never proceeds to the book insert, so no book can reference a
// missing author.
func (s *CatalogService) resolveAuthor(ctx context.Context, name string) (*models.Author, bool, error) {
	author, err := s.authors.FindByName(ctx, name)
	if err != nil {
		return nil, false, errors.Wrap(err, "DB_ERROR", "Failed to look up author", http.StatusInternalServerError)
	}
	if author != nil {
		return author, false, nil
	}

	author = &models.Author{Name: name, BookIDs: []string{}}
	if err := s.authors.Create(ctx, author); err != nil {
		if err == repository.ErrDuplicateKey {
			// A concurrent insert from another instance won the race.
			return nil, false, errors.NewValidationError("author", "Author already exists")
		}
		return nil, false, errors.Wrap(err, "DB_ERROR", "Failed to save author", http.StatusInternalServerError)
	}
	return author, true, nil
}

// appendBookRef adds the book id to the author's books array with a bounded
// retry. The write is an atomic set-add on the one field, so it cannot undo a
// concurrent born edit and needs no re-read between attempts. Exhausting the
// retries is not an error for the caller: the book is persisted and author
// queries resolve books through the forward reference, so the record is
// reachable either way. The failure is logged and counted.
func (s *CatalogService) appendBookRef(ctx context.Context, author *models.Author, bookID string) {
	for attempt := 1; attempt <= backRefRetries; attempt++ {
		if err := s.authors.AppendBook(ctx, author.ID, bookID); err != nil {
			slog.Warn("author back-reference append failed", "author", author.Name, "book", bookID, "attempt", attempt, "error", err)
			continue
		}
		if !containsID(author.BookIDs, bookID) {
			author.BookIDs = append(author.BookIDs, bookID)
		}
		return
	}
	slog.Error("author back-reference append exhausted retries", "author", author.Name, "book", bookID)
	metrics.ConsistencyRepairFailures.WithLabelValues("book_back_reference").Inc()
}

// populateAuthor fills the author's Books from the forward reference.
// Nested books carry no author pointer back, keeping the structure acyclic.
func (s *CatalogService) populateAuthor(ctx context.Context, author *models.Author) error {
	books, err := s.books.FindByAuthorID(ctx, author.ID)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to list author's books", http.StatusInternalServerError)
	}
	if books == nil {
		books = []*models.Book{}
	}
	author.Books = books
	return nil
}

// populateBooks fills each book's Author. Nested authors carry an empty
// books list rather than pointers back to the books.
func (s *CatalogService) populateBooks(ctx context.Context, books []*models.Book) error {
	cache := make(map[string]*models.Author)
	for _, book := range books {
		author, ok := cache[book.AuthorID]
		if !ok {
			var err error
			author, err = s.authors.FindByID(ctx, book.AuthorID)
			if err != nil {
				return errors.Wrap(err, "DB_ERROR", "Failed to look up author", http.StatusInternalServerError)
			}
			if author != nil {
				author.Books = []*models.Book{}
			}
			cache[book.AuthorID] = author
		}
		book.Author = author
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
