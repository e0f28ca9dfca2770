package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
)

// TablesResponse lists the period tables present in the store.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// ArticlesResponse holds the reconciled articles of one period table.
type ArticlesResponse struct {
	Table    string           `json:"table"`
	Articles []models.Article `json:"articles"`
}

// ArticlesHandler serves read-only views over the row store.
type ArticlesHandler struct {
	store rowstore.Store
}

// NewArticlesHandler creates a new handler instance.
func NewArticlesHandler(store rowstore.Store) *ArticlesHandler {
	return &ArticlesHandler{store: store}
}

// GetTables handles requests to list period tables.
func (h *ArticlesHandler) GetTables(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error listing tables")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, TablesResponse{Tables: tables})
}

// GetArticles handles requests to fetch one table's articles. The `table`
// parameter is required; `included=true` filters down to articles eligible
// for syndication (vetoed rows excluded).
func (h *ArticlesHandler) GetArticles(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing articles request")

	query := r.URL.Query()
	table := query.Get("table")
	if table == "" {
		log.Warn().Msg("Missing required parameter: 'table'")
		http.Error(w, "Missing required parameter: 'table'", http.StatusBadRequest)
		return
	}

	includedOnly := false
	if v := query.Get("included"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Str("included", v).Msg("Invalid 'included' parameter value")
			http.Error(w, "Invalid 'included' parameter: must be a boolean", http.StatusBadRequest)
			return
		}
		includedOnly = parsed
	}

	headers, rows, err := h.store.GetTable(r.Context(), table)
	if err != nil {
		var notFound *rowstore.ErrTableNotFound
		if errors.As(err, &notFound) {
			http.Error(w, "Table not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("table", table).Msg("Error fetching table")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	articles := make([]models.Article, 0, len(rows))
	for _, row := range rows {
		a := reconcile.RowToArticle(headers, row)
		if includedOnly && !a.Approval.Included() {
			continue
		}
		articles = append(articles, a)
	}

	writeJSON(w, r, ArticlesResponse{Table: table, Articles: articles})
}

func writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
