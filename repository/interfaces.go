// Package repository defines the persistence contracts for the identity and
// catalogue stores. Implementations return (nil, nil) when a record is not
// found and ErrDuplicateKey when a unique constraint is violated.
package repository

import (
	"context"
	"errors"

	"github.com/GShadowBroker/library-server/models"
)

// ErrDuplicateKey is returned by Create when a unique key (username, author
// name, book title) already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// UserRepository persists user records.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// Create assigns an id to the user and persists it.
	Create(ctx context.Context, user *models.User) error
	// Update overwrites the stored record identified by user.ID.
	Update(ctx context.Context, user *models.User) error
	All(ctx context.Context) ([]*models.User, error)
}

// AuthorRepository persists author records. Mutations are field-level:
// concurrent writers touch disjoint fields (born vs books), so neither can
// overwrite the other's work with a stale whole-record image.
type AuthorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Author, error)
	FindByName(ctx context.Context, name string) (*models.Author, error)
	Create(ctx context.Context, author *models.Author) error
	// SetBorn atomically updates only the born field of the author with the
	// given name and returns the updated record, or (nil, nil) if no such
	// author exists.
	SetBorn(ctx context.Context, name string, born int) (*models.Author, error)
	// AppendBook atomically adds bookID to the author's books array, once.
	AppendBook(ctx context.Context, authorID, bookID string) error
	All(ctx context.Context) ([]*models.Author, error)
	Count(ctx context.Context) (int64, error)
}

// BookRepository persists book records.
type BookRepository interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
	FindByTitle(ctx context.Context, title string) (*models.Book, error)
	// FindByAuthorID lists books whose forward reference points at the
	// author, regardless of the author's denormalized books array.
	FindByAuthorID(ctx context.Context, authorID string) ([]*models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	All(ctx context.Context) ([]*models.Book, error)
	Count(ctx context.Context) (int64, error)
}
