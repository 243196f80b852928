// Package imdb ingests the public IMDB TSV dumps into a local sqlite
// database and matches anime titles against them. The match result is
// what turns a "mal-<id>" fallback into a proper "tt..." Stremio id,
// which unlocks every IMDB-keyed addon the user has installed.
package imdb

import (
	"bufio"
	"compress/gzip"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// nullField is the TSV placeholder for an absent value.
const nullField = `\N`

// importBatchSize rows per transaction during ingest.
const importBatchSize = 5000

// Dataset is the local sqlite copy of the IMDB dumps.
type Dataset struct {
	db     *sql.DB
	logger *slog.Logger
}

// Title is one row of title.basics.
type Title struct {
	Tconst         string
	Type           string
	PrimaryTitle   string
	OriginalTitle  string
	StartYear      int
	EndYear        int
	RuntimeMinutes int
	IsAnimation    bool
}

// Rating is one row of title.ratings.
type Rating struct {
	Average float64
	Votes   int
}

// Open creates or opens the dataset database at the given path.
func Open(path string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Dataset{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (d *Dataset) Close() error {
	return d.db.Close()
}

// ImportBasics ingests a title.basics TSV stream, plain or gzipped.
// Episode rows and adult titles are skipped; everything else is kept so
// the matcher can type-check candidates. Returns the number of rows
// ingested.
func (d *Dataset) ImportBasics(ctx context.Context, r io.Reader) (int, error) {
	const insert = `INSERT OR REPLACE INTO titles
		(tconst, title_type, primary_title, original_title, start_year, end_year, runtime_minutes, is_animation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	count := 0
	err := d.importTSV(ctx, r, 9, insert, func(stmt *sql.Stmt, fields []string) error {
		titleType := fields[1]
		if titleType == "tvEpisode" || fields[4] == "1" {
			return nil
		}

		isAnimation := 0
		if strings.Contains(fields[8], "Animation") {
			isAnimation = 1
		}

		if _, err := stmt.ExecContext(ctx,
			fields[0], titleType, fields[2], fields[3],
			tsvInt(fields[5]), tsvInt(fields[6]), tsvInt(fields[7]), isAnimation,
		); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("import title.basics: %w", err)
	}

	d.logger.Info("imported imdb titles", "rows", count)
	return count, nil
}

// ImportRatings ingests a title.ratings TSV stream, plain or gzipped.
// Returns the number of rows ingested.
func (d *Dataset) ImportRatings(ctx context.Context, r io.Reader) (int, error) {
	const insert = `INSERT OR REPLACE INTO ratings (tconst, average_rating, num_votes) VALUES (?, ?, ?)`

	count := 0
	err := d.importTSV(ctx, r, 3, insert, func(stmt *sql.Stmt, fields []string) error {
		rating, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil
		}
		if _, err := stmt.ExecContext(ctx, fields[0], rating, tsvInt(fields[2])); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("import title.ratings: %w", err)
	}

	d.logger.Info("imported imdb ratings", "rows", count)
	return count, nil
}

// importTSV streams a dump line by line, handing each well-formed row
// to insert inside batched transactions.
func (d *Dataset) importTSV(ctx context.Context, r io.Reader, wantFields int, insertSQL string, insert func(*sql.Stmt, []string) error) error {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}

	rollback := func() {
		stmt.Close()
		tx.Rollback()
	}

	line := 0
	batched := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			// Header row.
			continue
		}
		if err := ctx.Err(); err != nil {
			rollback()
			return err
		}

		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != wantFields {
			continue
		}
		if err := insert(stmt, fields); err != nil {
			rollback()
			return fmt.Errorf("line %d: %w", line, err)
		}

		batched++
		if batched >= importBatchSize {
			stmt.Close()
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
			tx, err = d.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin tx: %w", err)
			}
			stmt, err = tx.PrepareContext(ctx, insertSQL)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("prepare insert: %w", err)
			}
			batched = 0
		}
	}
	if err := scanner.Err(); err != nil {
		rollback()
		return fmt.Errorf("read stream: %w", err)
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Title looks up one title by tconst; nil when the dataset has no row.
func (d *Dataset) Title(ctx context.Context, tconst string) (*Title, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT tconst, title_type, primary_title, original_title, start_year, end_year, runtime_minutes, is_animation
		FROM titles WHERE tconst = ?`, tconst)

	var t Title
	var isAnimation int
	err := row.Scan(&t.Tconst, &t.Type, &t.PrimaryTitle, &t.OriginalTitle, &t.StartYear, &t.EndYear, &t.RuntimeMinutes, &isAnimation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query title %s: %w", tconst, err)
	}
	t.IsAnimation = isAnimation == 1
	return &t, nil
}

// Rating looks up the community rating for a tconst; nil when the
// dataset has none.
func (d *Dataset) Rating(ctx context.Context, tconst string) (*Rating, error) {
	row := d.db.QueryRowContext(ctx, `SELECT average_rating, num_votes FROM ratings WHERE tconst = ?`, tconst)

	var r Rating
	err := row.Scan(&r.Average, &r.Votes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query rating %s: %w", tconst, err)
	}
	return &r, nil
}

// AnimationTitles returns every animation-flagged title, the corpus the
// match index is built over.
func (d *Dataset) AnimationTitles(ctx context.Context) ([]Title, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT tconst, title_type, primary_title, original_title, start_year, end_year, runtime_minutes
		FROM titles WHERE is_animation = 1`)
	if err != nil {
		return nil, fmt.Errorf("query animation titles: %w", err)
	}
	defer rows.Close()

	var titles []Title
	for rows.Next() {
		t := Title{IsAnimation: true}
		if err := rows.Scan(&t.Tconst, &t.Type, &t.PrimaryTitle, &t.OriginalTitle, &t.StartYear, &t.EndYear, &t.RuntimeMinutes); err != nil {
			return nil, fmt.Errorf("scan animation title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate animation titles: %w", err)
	}
	return titles, nil
}

// Counts reports the table sizes, used by the inspection tool.
func (d *Dataset) Counts(ctx context.Context) (titles, ratings int, err error) {
	if err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles`).Scan(&titles); err != nil {
		return 0, 0, fmt.Errorf("count titles: %w", err)
	}
	if err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&ratings); err != nil {
		return 0, 0, fmt.Errorf("count ratings: %w", err)
	}
	return titles, ratings, nil
}

// tsvInt parses a numeric TSV field, with \N and junk as 0.
func tsvInt(s string) int {
	if s == nullField {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
