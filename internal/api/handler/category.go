package handler

import (
	"net/http"

	"github.com/mcoot/triviagame/internal/api/apierr"
	"github.com/mcoot/triviagame/internal/api/response"
	"github.com/mcoot/triviagame/internal/services/questions"
)

// CategoryHandler lists the categories games can be created in
type CategoryHandler struct {
	catalog *questions.Catalog
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(catalog *questions.Catalog) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

// List handles GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.List(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	out := make([]response.Category, len(categories))
	for i, c := range categories {
		out[i] = response.CategoryFromModel(c)
	}
	response.JSON(w, http.StatusOK, out)
}
