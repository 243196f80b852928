package enrich

import (
	"bytes"
	"compress/gzip"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/haruapp/haru-server/internal/domain"
	"github.com/haruapp/haru-server/internal/validation"
)

// Catalog artifact names inside the output directory.
const (
	CatalogFilename   = "database.json"
	CatalogGzFilename = "database.json.gz"
	FiltersFilename   = "filters.json"
)

// Emitter writes the catalog artifacts the server loads: database.json,
// its gzip twin, and the filters.json facet file. Every write goes
// through a uniquely named temp file and a rename, so the server's file
// watcher never observes a half-written catalog.
type Emitter struct {
	dir       string
	source    string
	validator *validation.Validator
	logger    *slog.Logger
}

// EmitterOptions configures an Emitter.
type EmitterOptions struct {
	// Dir receives the artifacts.
	Dir string
	// Source names the primary catalog source in the envelope.
	// Defaults to "kitsu".
	Source string
	// Logger for emit diagnostics. Defaults to stderr.
	Logger *slog.Logger
}

// NewEmitter creates an emitter writing into opts.Dir.
func NewEmitter(opts EmitterOptions) *Emitter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	source := opts.Source
	if source == "" {
		source = "kitsu"
	}

	return &Emitter{
		dir:       opts.Dir,
		source:    source,
		validator: validation.New(),
		logger:    logger,
	}
}

// Emit validates the records, assembles the catalog envelope, and writes
// all three artifacts. Records that fail validation are logged and
// dropped. Emitting zero valid records over an existing non-empty
// catalog is refused, so a broken upstream run cannot wipe a good
// catalog.
func (e *Emitter) Emit(records []domain.AnimeRecord) (domain.CatalogFile, error) {
	valid := make([]domain.AnimeRecord, 0, len(records))
	for i := range records {
		if err := e.validator.Validate(records[i]); err != nil {
			e.logger.Warn("dropping invalid record",
				"id", records[i].ID,
				"name", records[i].Name,
				"error", err)
			continue
		}
		valid = append(valid, records[i])
	}

	catalogPath := filepath.Join(e.dir, CatalogFilename)
	if len(valid) == 0 && existingCatalogCount(catalogPath) > 0 {
		return domain.CatalogFile{}, fmt.Errorf("refusing to replace non-empty catalog %s with zero records", catalogPath)
	}

	file := domain.NewCatalogFile(uuid.NewString(), e.source, valid)

	payload, err := json.Marshal(file)
	if err != nil {
		return domain.CatalogFile{}, fmt.Errorf("marshal catalog: %w", err)
	}

	if err := writeFileAtomic(catalogPath, func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	}); err != nil {
		return domain.CatalogFile{}, fmt.Errorf("write %s: %w", CatalogFilename, err)
	}

	if err := writeFileAtomic(filepath.Join(e.dir, CatalogGzFilename), func(w io.Writer) error {
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(payload); err != nil {
			return err
		}
		return zw.Close()
	}); err != nil {
		return domain.CatalogFile{}, fmt.Errorf("write %s: %w", CatalogGzFilename, err)
	}

	facets, err := json.Marshal(domain.ComputeFilterOptions(valid).File())
	if err != nil {
		return domain.CatalogFile{}, fmt.Errorf("marshal filters: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(e.dir, FiltersFilename), func(w io.Writer) error {
		_, err := w.Write(facets)
		return err
	}); err != nil {
		return domain.CatalogFile{}, fmt.Errorf("write %s: %w", FiltersFilename, err)
	}

	e.logger.Info("catalog emitted",
		"dir", e.dir,
		"version", file.Version,
		"total", file.Stats.Total,
		"series", file.Stats.Series,
		"movies", file.Stats.Movies,
		"dropped", len(records)-len(valid))

	return file, nil
}

// existingCatalogCount reports how many records the catalog at path
// holds. Read and parse problems count as zero; the guard only needs to
// distinguish a real catalog from everything else.
func existingCatalogCount(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}

	// Pre-envelope builds wrote a bare top-level array.
	if trimmed[0] == '[' {
		var records []struct{}
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return 0
		}
		return len(records)
	}

	var envelope struct {
		Catalog []struct{} `json:"catalog"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return 0
	}
	return len(envelope.Catalog)
}

// writeFileAtomic writes through a temp file in the target directory
// and renames it into place. Readers see either the old content or the
// new content, never a partial file.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	suffix, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("temp name: %w", err)
	}
	tmp := path + ".tmp-" + suffix

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
