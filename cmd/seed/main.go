package main

import (
	"context"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/hanoigo/assistant/internal/bootstrap"
	"github.com/hanoigo/assistant/internal/config"
	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/observability/logging"
)

// Column layout of the venue spreadsheet. The first row is a header and is
// skipped.
const (
	colID = iota
	colName
	colAddress
	colDistrict
	colCategory
	colDescription
	colPriceMin
	colPriceMax
	colMoodTags
	colSpaceTags
	colSuitabilityTags
	colSpecialTags
	colFoodTags
	colLat
	colLng
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("assistant-seed", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	venues, err := readVenues(cfg.SeedFilePath)
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}

	var imported, failed int
	for _, venue := range venues {
		if err := app.Catalog.Upsert(ctx, &venue); err != nil {
			logger.Error("venue_upsert_failed", "venue", venue.Name, "error", err)
			failed++
			continue
		}
		if err := app.Queue.PublishVenueIngested(ctx, venue.ID); err != nil {
			logger.Error("venue_publish_failed", "venue_id", venue.ID, "error", err)
			failed++
			continue
		}
		imported++
	}

	logger.Info("seed_complete",
		"file", cfg.SeedFilePath,
		"imported", imported,
		"failed", failed,
	)
}

func readVenues(path string) ([]domain.Venue, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}

	var venues []domain.Venue
	for i, row := range rows {
		if i == 0 {
			continue
		}
		venue, ok := parseRow(row)
		if !ok {
			slog.Warn("seed_row_skipped", "row", i+1)
			continue
		}
		venues = append(venues, venue)
	}
	return venues, nil
}

func parseRow(row []string) (domain.Venue, bool) {
	name := strings.TrimSpace(cell(row, colName))
	address := strings.TrimSpace(cell(row, colAddress))
	if name == "" || address == "" {
		return domain.Venue{}, false
	}

	id := strings.TrimSpace(cell(row, colID))
	if id == "" {
		id = uuid.NewString()
	}

	venue := domain.Venue{
		ID:          id,
		Name:        name,
		Address:     address,
		District:    strings.TrimSpace(cell(row, colDistrict)),
		Category:    strings.TrimSpace(cell(row, colCategory)),
		Description: strings.TrimSpace(cell(row, colDescription)),
		PriceMin:    parseInt(cell(row, colPriceMin)),
		PriceMax:    parseInt(cell(row, colPriceMax)),
		Tags: domain.VenueTags{
			Mood:            splitTags(cell(row, colMoodTags)),
			Space:           splitTags(cell(row, colSpaceTags)),
			Suitability:     splitTags(cell(row, colSuitabilityTags)),
			SpecialFeatures: splitTags(cell(row, colSpecialTags)),
			Food:            splitTags(cell(row, colFoodTags)),
		},
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(cell(row, colLat)), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(cell(row, colLng)), 64)
	if latErr == nil && lngErr == nil {
		venue.Location = &domain.Coordinates{Lat: lat, Lng: lng}
	}

	return venue, true
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
