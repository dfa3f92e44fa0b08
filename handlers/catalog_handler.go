package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GShadowBroker/library-server/middleware"
	"github.com/GShadowBroker/library-server/services"
	"github.com/GShadowBroker/library-server/utils/errors"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) AllBooks(w http.ResponseWriter, r *http.Request) {
	author := r.URL.Query().Get("author")
	genre := r.URL.Query().Get("genre")

	books, err := h.catalogService.AllBooks(r.Context(), author, genre)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *CatalogHandler) AllAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.catalogService.AllAuthors(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

func (h *CatalogHandler) BookCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalogService.BookCount(r.Context())
	if err != nil {
		middleware.WriteError(w, errors.Wrap(err, "DB_ERROR", "Failed to count books", http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"bookCount": count})
}

func (h *CatalogHandler) AuthorCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalogService.AuthorCount(r.Context())
	if err != nil {
		middleware.WriteError(w, errors.Wrap(err, "DB_ERROR", "Failed to count authors", http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"authorCount": count})
}

func (h *CatalogHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title     string   `json:"title"`
		Author    string   `json:"author"`
		Published *int     `json:"published"`
		Genres    []string `json:"genres"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	if input.Published == nil {
		middleware.WriteError(w, errors.NewValidationError("published", "Publication year is required"))
		return
	}

	book, err := h.catalogService.AddBook(r.Context(), input.Title, input.Author, *input.Published, input.Genres)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *CatalogHandler) EditAuthor(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name      string `json:"name"`
		SetBornTo *int   `json:"setBornTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	if input.SetBornTo == nil {
		middleware.WriteError(w, errors.NewValidationError("setBornTo", "Birth year is required"))
		return
	}

	author, err := h.catalogService.EditAuthor(r.Context(), input.Name, *input.SetBornTo)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}
