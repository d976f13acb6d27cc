// Command ingest pushes receipt files through extraction and into the
// warehouse without the HTTP server. Each argument is a receipt file (pdf,
// jpg, jpeg, png or txt); a failed file is logged and skipped, the rest of
// the batch continues.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/extract"
	"github.com/dvloznov/receipt-ledger/internal/logger"
	"github.com/dvloznov/receipt-ledger/internal/textextract"
	"github.com/dvloznov/receipt-ledger/internal/warehouse"
)

func main() {
	dir := flag.String("dir", "", "Ingest every supported file in this directory")
	dryRun := flag.Bool("dry-run", false, "Extract and print without writing to the warehouse")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New("").Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel)

	files := flag.Args()
	if *dir != "" {
		entries, err := os.ReadDir(*dir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", *dir).Msg("Failed to read directory")
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if supportedFile(entry.Name()) {
				files = append(files, filepath.Join(*dir, entry.Name()))
			}
		}
	}

	if len(files) == 0 {
		log.Fatal().Msg("Nothing to ingest: pass receipt files as arguments or use -dir")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	extractor, err := extract.NewExtractor(ctx, cfg.Extractor.Model, &textextract.Adapter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create receipt extractor")
	}

	var store warehouse.Store
	if !*dryRun {
		repo, err := warehouse.NewRepository(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.DatasetID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create warehouse repository")
		}
		defer repo.Close()
		store = repo
	}

	succeeded, failed := 0, 0
	for _, path := range files {
		if err := ingestFile(ctx, extractor, store, path); err != nil {
			log.Error().Err(err).Str("file", path).Msg("Ingestion failed for file")
			failed++
			continue
		}
		log.Info().Str("file", path).Msg("Ingested receipt")
		succeeded++
	}

	fmt.Printf("Ingestion finished: %d succeeded, %d failed\n", succeeded, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func supportedFile(name string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf", "jpg", "jpeg", "png", "txt":
		return true
	}
	return false
}

func ingestFile(ctx context.Context, extractor *extract.Extractor, store warehouse.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	in := extract.Input{
		FileBytes: data,
		FileType:  strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
	}

	extraction, _, err := extractor.Extract(ctx, in)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", path, err)
	}

	if store == nil {
		fmt.Println(extractionSummary(extraction))
		return nil
	}

	tx := domain.FlattenExtraction(extraction)
	id, err := store.Insert(ctx, &tx)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	fmt.Printf("  %s -> %s (%s, %.2f, confidence %.2f)\n", filepath.Base(path), id, tx.Merchant, tx.Amount, tx.AmountConfidence)
	return nil
}

func extractionSummary(ex domain.ReceiptExtraction) string {
	return fmt.Sprintf("  [dry-run] merchant=%q amount=%.2f date=%s category=%s",
		ex.Merchant.Value, ex.Amount.Value, ex.Date.Value, ex.Category.Value)
}
