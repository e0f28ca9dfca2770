// Package server exposes a read-only HTTP API over the system of record,
// backing the editorial dashboard.
package server

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inyourbones/newsdesk/internal/database"
	"inyourbones/newsdesk/internal/rowstore"
	"inyourbones/newsdesk/internal/server/api"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqApiKey := r.Header.Get("X-API-Key")
			if reqApiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if reqApiKey != apiKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RunServer starts the HTTP server with graceful shutdown support.
// It sets up routes, middleware, and handles OS signals for clean termination.
func RunServer(db *database.DB, listenAddr string, logger zerolog.Logger, apiKey string) error {
	logger = logger.With().Str("service", "newsdesk-api-readonly").Logger()

	store := rowstore.NewSQLiteStore(db)
	articlesHandler := api.NewArticlesHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tables", articlesHandler.GetTables)
	mux.HandleFunc("GET /v1/articles", articlesHandler.GetArticles)
	mux.HandleFunc("GET /v1/feeds", exportFeedsHandler(db))
	mux.HandleFunc("GET /health", healthCheckHandler)

	// Set up middleware chain for logging and request tracking
	h := hlog.NewHandler(logger)(mux)
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)

	if apiKey != "" {
		h = apiKeyMiddleware(apiKey)(h)
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal().Err(err).Msg("Server failed to start")

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Health check request received")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}

// exportFeedsHandler returns a handler function that exports the feed
// registry as a CSV file in the same shape the import command accepts.
func exportFeedsHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)
		log.Debug().Msg("Export feeds request received")

		rows, err := db.Query(`
			SELECT url, source, status
			FROM feeds
			WHERE deleted_at IS NULL
			ORDER BY id ASC
		`)
		if err != nil {
			log.Error().Err(err).Msg("Failed to query feeds")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=feeds.csv")

		csvWriter := csv.NewWriter(w)

		header := []string{"url", "source", "status"}
		if err := csvWriter.Write(header); err != nil {
			log.Error().Err(err).Msg("Failed to write CSV header")
			http.Error(w, "Error generating CSV", http.StatusInternalServerError)
			return
		}

		var count int
		for rows.Next() {
			var url, status string
			var source sql.NullString

			err := rows.Scan(&url, &source, &status)
			if err != nil {
				log.Error().Err(err).Msg("Failed to scan feed row")
				continue
			}

			record := []string{url, nullStringValue(source), status}
			if err := csvWriter.Write(record); err != nil {
				log.Error().Err(err).Msg("Failed to write CSV record")
				http.Error(w, "Error generating CSV", http.StatusInternalServerError)
				return
			}

			count++
		}

		if err := rows.Err(); err != nil {
			log.Error().Err(err).Msg("Error iterating feed rows")
			http.Error(w, "Error reading feeds", http.StatusInternalServerError)
			return
		}

		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Error().Err(err).Msg("Error flushing CSV data")
			return
		}

		log.Info().Int("feed_count", count).Msg("Exported feeds as CSV")
	}
}

// nullStringValue returns the string value of a sql.NullString or an empty string if not valid
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
