package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/interfaces"
)

// PageHandler serves read access to generated pages
type PageHandler struct {
	pages  interfaces.PageStorage
	logger arbor.ILogger
}

// NewPageHandler creates a new page handler
func NewPageHandler(pages interfaces.PageStorage, logger arbor.ILogger) *PageHandler {
	return &PageHandler{
		pages:  pages,
		logger: logger,
	}
}

// ListPagesHandler returns a paginated list of generated pages
// GET /api/pages?category_id=&geo_level=&status=&limit=50&offset=0
func (h *PageHandler) ListPagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	opts := &interfaces.PageListOptions{
		CategoryID: r.URL.Query().Get("category_id"),
		GeoLevel:   r.URL.Query().Get("geo_level"),
		Status:     r.URL.Query().Get("status"),
		Limit:      QueryInt(r, "limit", 50),
		Offset:     QueryInt(r, "offset", 0),
	}

	pages, err := h.pages.List(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list pages")
		WriteError(w, http.StatusInternalServerError, "Failed to list pages")
		return
	}

	total, err := h.pages.Count(ctx, opts)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count pages")
		total = len(pages)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"pages":       pages,
		"total_count": total,
		"limit":       opts.Limit,
		"offset":      opts.Offset,
	})
}
