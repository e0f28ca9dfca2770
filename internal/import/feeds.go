package importfeeds

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/database"
	"inyourbones/newsdesk/internal/models"
)

// Importer handles the feed registry import process
type Importer struct {
	db *database.DB
}

// NewImporter creates a new feed importer
func NewImporter(db *database.DB) *Importer {
	return &Importer{db: db}
}

// ImportFeeds imports feeds from a CSV file with columns url, source, status.
func (i *Importer) ImportFeeds(csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting feed import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	if err := i.parseAndImportFeeds(f); err != nil {
		return fmt.Errorf("failed to import feeds: %w", err)
	}

	log.Info().Msg("Import completed successfully")
	return nil
}

func (i *Importer) parseAndImportFeeds(csvData io.Reader) error {
	log.Debug().Msg("Starting to parse and import feeds")

	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return err
	}

	log.Debug().Strs("header", header).Msg("CSV header read")

	expectedColumns := map[string]bool{
		"url": false, "source": false, "status": false,
	}

	for _, column := range header {
		column = strings.ToLower(column)
		if _, exists := expectedColumns[column]; exists {
			expectedColumns[column] = true
		}
	}

	for column, found := range expectedColumns {
		if !found {
			return fmt.Errorf("required column '%s' not found in CSV header", column)
		}
	}

	urlIdx := findColumnIndex(header, "url")
	sourceIdx := findColumnIndex(header, "source")
	statusIdx := findColumnIndex(header, "status")

	tx, err := i.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			log.Debug().Msg("Transaction rolled back")
			return
		}
		err = tx.Commit()
		if err != nil {
			log.Error().Err(err).Msg("Failed to commit transaction")
		} else {
			log.Debug().Msg("Transaction committed successfully")
		}
	}()

	lineCount := 1 // Header was already read
	successCount := 0
	var errors []string

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			errors = append(errors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			log.Debug().Int("line", lineCount).Msg("Skipping empty row")
			continue
		}

		feed := models.NewFeed()
		feed.URL = safeGetValue(record, urlIdx).String
		feed.Source = safeGetValue(record, sourceIdx)
		if status := safeGetValue(record, statusIdx); status.Valid {
			feed.Status = status.String
		}

		if feed.URL == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with empty URL")
			errors = append(errors, fmt.Sprintf("line %d: empty URL", lineCount))
			continue
		}

		logger := log.With().
			Int("line", lineCount).
			Str("url", feed.URL).
			Str("source", feed.Source.String).
			Logger()

		logger.Debug().Msg("Processing feed")

		err = i.db.InsertFeed(feed)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				logger.Warn().Msg("Duplicate URL")
				errors = append(errors, fmt.Sprintf("line %d: duplicate URL: %s", lineCount, feed.URL))
			} else {
				logger.Error().Err(err).Msg("Failed to insert feed")
				errors = append(errors, fmt.Sprintf("line %d: %v", lineCount, err))
			}
			err = nil
			continue
		}

		successCount++
		logger.Debug().Msg("Feed inserted successfully")
	}

	log.Info().
		Int("total", lineCount-1).
		Int("success", successCount).
		Int("errors", len(errors)).
		Msg("Import summary")

	fmt.Printf("Imported %d feeds successfully\n", successCount)
	if len(errors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(errors))
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
	}

	return nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(col, columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns a sql.NullString from a record at the specified index.
// If the index is out of bounds or the value is empty, it returns an invalid NullString.
func safeGetValue(record []string, index int) sql.NullString {
	if index >= 0 && index < len(record) && record[index] != "" {
		return sql.NullString{
			String: record[index],
			Valid:  true,
		}
	}
	return sql.NullString{Valid: false}
}
