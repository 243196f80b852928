// Package main provides a quick look inside the data directory the
// refresh pipeline maintains: the catalog envelope, the fetch cache,
// and the IMDB dataset.
//
// Usage:
//
//	DATA_PATH=~/haru/data go run ./cmd/dbinspect
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/haruapp/haru-server/internal/domain"
	"github.com/haruapp/haru-server/internal/enrich"
	"github.com/haruapp/haru-server/internal/imdb"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = "./data"
	}

	fmt.Println("=== Haru Data Inspection ===")
	fmt.Printf("Data directory: %s\n", dataPath)
	fmt.Println()

	inspectCatalog(filepath.Join(dataPath, enrich.CatalogFilename))
	inspectCache(filepath.Join(dataPath, "cache"))
	inspectDataset(filepath.Join(dataPath, "imdb.db"))
}

func inspectCatalog(path string) {
	fmt.Println("--- Catalog ---")

	raw, err := readMaybeGzip(path)
	if err != nil {
		fmt.Printf("No catalog: %v\n\n", err)
		return
	}

	var file domain.CatalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}

	fmt.Printf("Version:    %s\n", file.Version)
	fmt.Printf("Built:      %s\n", file.BuildDate)
	fmt.Printf("Source:     %s\n", file.Source)
	fmt.Printf("Records:    %d (%d series, %d movies)\n",
		file.Stats.Total, file.Stats.Series, file.Stats.Movies)

	subtypes := map[string]int{}
	statuses := map[string]int{}
	withImdb := 0
	withPoster := 0
	withBlur := 0
	for i := range file.Catalog {
		rec := &file.Catalog[i]
		subtypes[string(rec.Subtype)]++
		statuses[string(rec.Status)]++
		if rec.ImdbID != "" {
			withImdb++
		}
		if rec.Poster != "" {
			withPoster++
		}
		if rec.PosterBlur != "" {
			withBlur++
		}
	}

	fmt.Printf("Subtypes:   %s\n", formatHistogram(subtypes))
	fmt.Printf("Statuses:   %s\n", formatHistogram(statuses))
	fmt.Printf("Coverage:   imdb %d, poster %d, blurhash %d\n",
		withImdb, withPoster, withBlur)

	for i, rec := range file.Catalog {
		if i >= 3 {
			fmt.Printf("... and %d more records\n", len(file.Catalog)-3)
			break
		}
		fmt.Printf("  [%s] %s (%s, %d eps, rating %.1f)\n",
			rec.ID, rec.Name, rec.Subtype, rec.EpisodeCount, rec.RatingValue())
	}
	fmt.Println()
}

func inspectCache(path string) {
	fmt.Println("--- Fetch cache ---")

	if _, err := os.Stat(path); err != nil {
		fmt.Printf("No cache: %v\n\n", err)
		return
	}

	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer db.Close()

	entries := 0
	expired := 0
	var size int64
	hosts := map[string]int{}
	now := uint64(time.Now().Unix())

	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			entries++
			size += item.EstimatedSize()
			if exp := item.ExpiresAt(); exp > 0 && exp < now {
				expired++
			}
			hosts[keyHost(string(item.Key()))]++
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan cache: %v", err)
	}

	fmt.Printf("Entries:    %d (%d expired)\n", entries, expired)
	fmt.Printf("Size:       ~%.1f MB\n", float64(size)/(1<<20))
	fmt.Printf("By host:    %s\n", formatHistogram(hosts))
	fmt.Println()
}

func inspectDataset(path string) {
	fmt.Println("--- IMDB dataset ---")

	if _, err := os.Stat(path); err != nil {
		fmt.Printf("No dataset: %v\n\n", err)
		return
	}

	dataset, err := imdb.Open(path, nil)
	if err != nil {
		log.Fatalf("Failed to open IMDB dataset: %v", err)
	}
	defer dataset.Close()

	titles, ratings, err := dataset.Counts(context.Background())
	if err != nil {
		log.Fatalf("Failed to count dataset rows: %v", err)
	}

	fmt.Printf("Titles:     %d\n", titles)
	fmt.Printf("Ratings:    %d\n", ratings)
	fmt.Println()
}

// readMaybeGzip reads the catalog, falling back to the gzip twin when
// the plain file is absent.
func readMaybeGzip(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return raw, nil
	}

	gz, gzErr := os.Open(path + ".gz")
	if gzErr != nil {
		return nil, err
	}
	defer gz.Close()

	r, gzErr := gzip.NewReader(gz)
	if gzErr != nil {
		return nil, fmt.Errorf("open %s.gz: %w", path, gzErr)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// keyHost buckets a cache key for the per-source breakdown. Keys are
// URLs except for the blurhash poster entries.
func keyHost(key string) string {
	if rest, ok := strings.CutPrefix(key, "blurhash:"); ok {
		key = rest
		if u, err := url.Parse(key); err == nil && u.Host != "" {
			return "blurhash " + u.Host
		}
		return "blurhash"
	}
	if u, err := url.Parse(key); err == nil && u.Host != "" {
		return u.Host
	}
	return "other"
}

func formatHistogram(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		label := k
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(&b, "%s %d", label, counts[k])
	}
	if b.Len() == 0 {
		return "(empty)"
	}
	return b.String()
}
