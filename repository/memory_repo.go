package repository

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GShadowBroker/library-server/models"
)

// In-memory implementations of the store contracts. Used by the tests and as
// the dev fallback when no mongo connection string is configured. Records are
// cloned on every read and write so callers never share memory with the
// store, mirroring the round-trip behavior of the real thing.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.User)}
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Username == username {
			return cloneUser(user), nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return ErrDuplicateKey
		}
	}
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) All(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*models.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, cloneUser(user))
	}
	return users, nil
}

type MemoryAuthorRepository struct {
	mu      sync.RWMutex
	authors map[string]*models.Author
}

func NewMemoryAuthorRepository() *MemoryAuthorRepository {
	return &MemoryAuthorRepository{authors: make(map[string]*models.Author)}
}

func (r *MemoryAuthorRepository) FindByID(ctx context.Context, id string) (*models.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	author, ok := r.authors[id]
	if !ok {
		return nil, nil
	}
	return cloneAuthor(author), nil
}

func (r *MemoryAuthorRepository) FindByName(ctx context.Context, name string) (*models.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, author := range r.authors {
		if author.Name == name {
			return cloneAuthor(author), nil
		}
	}
	return nil, nil
}

func (r *MemoryAuthorRepository) Create(ctx context.Context, author *models.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.authors {
		if existing.Name == author.Name {
			return ErrDuplicateKey
		}
	}
	if author.ID == "" {
		author.ID = primitive.NewObjectID().Hex()
	}
	r.authors[author.ID] = cloneAuthor(author)
	return nil
}

func (r *MemoryAuthorRepository) SetBorn(ctx context.Context, name string, born int) (*models.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, author := range r.authors {
		if author.Name == name {
			b := born
			author.Born = &b
			return cloneAuthor(author), nil
		}
	}
	return nil, nil
}

func (r *MemoryAuthorRepository) AppendBook(ctx context.Context, authorID, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	author, ok := r.authors[authorID]
	if !ok {
		return nil
	}
	for _, id := range author.BookIDs {
		if id == bookID {
			return nil
		}
	}
	author.BookIDs = append(author.BookIDs, bookID)
	return nil
}

func (r *MemoryAuthorRepository) All(ctx context.Context) ([]*models.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	authors := make([]*models.Author, 0, len(r.authors))
	for _, author := range r.authors {
		authors = append(authors, cloneAuthor(author))
	}
	return authors, nil
}

func (r *MemoryAuthorRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.authors)), nil
}

type MemoryBookRepository struct {
	mu    sync.RWMutex
	books map[string]*models.Book
	order []string // insertion order, so listings are stable
}

func NewMemoryBookRepository() *MemoryBookRepository {
	return &MemoryBookRepository{books: make(map[string]*models.Book)}
}

func (r *MemoryBookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[id]
	if !ok {
		return nil, nil
	}
	return cloneBook(book), nil
}

func (r *MemoryBookRepository) FindByTitle(ctx context.Context, title string) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, book := range r.books {
		if book.Title == title {
			return cloneBook(book), nil
		}
	}
	return nil, nil
}

func (r *MemoryBookRepository) FindByAuthorID(ctx context.Context, authorID string) ([]*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var books []*models.Book
	for _, id := range r.order {
		if r.books[id].AuthorID == authorID {
			books = append(books, cloneBook(r.books[id]))
		}
	}
	return books, nil
}

func (r *MemoryBookRepository) Create(ctx context.Context, book *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.books {
		if existing.Title == book.Title {
			return ErrDuplicateKey
		}
	}
	if book.ID == "" {
		book.ID = primitive.NewObjectID().Hex()
	}
	r.books[book.ID] = cloneBook(book)
	r.order = append(r.order, book.ID)
	return nil
}

func (r *MemoryBookRepository) All(ctx context.Context) ([]*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	books := make([]*models.Book, 0, len(r.books))
	for _, id := range r.order {
		books = append(books, cloneBook(r.books[id]))
	}
	return books, nil
}

func (r *MemoryBookRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.books)), nil
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.FriendIDs = append([]string(nil), u.FriendIDs...)
	clone.RequestIDs = append([]string(nil), u.RequestIDs...)
	clone.Friends = nil
	clone.FriendRequests = nil
	return &clone
}

func cloneAuthor(a *models.Author) *models.Author {
	clone := *a
	clone.BookIDs = append([]string(nil), a.BookIDs...)
	clone.Books = nil
	if a.Born != nil {
		born := *a.Born
		clone.Born = &born
	}
	return &clone
}

func cloneBook(b *models.Book) *models.Book {
	clone := *b
	clone.Genres = append([]string(nil), b.Genres...)
	clone.Author = nil
	return &clone
}
