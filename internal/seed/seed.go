// Package seed loads menu items, coupons and users into a store at startup.
// Sources are JSON arrays read from local files or http(s) URLs, plain or
// gzip-compressed.
package seed

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/config"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const maxSourceBytes = 64 << 20

// Stats reports how many records were written
type Stats struct {
	MenuItems int
	Coupons   int
	Users     int
}

// Loader fetches seed documents
type Loader struct {
	client *http.Client
	log    *slog.Logger
}

// NewLoader creates a loader whose downloads time out after timeout
func NewLoader(timeout time.Duration, log *slog.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// fileLoadResult holds the result of loading a single coupon source
type fileLoadResult struct {
	index   int
	coupons []models.Coupon
	err     error
}

// Run writes every configured source into store. Coupons that already exist
// are updated without touching their usage count.
func (l *Loader) Run(ctx context.Context, store *repository.Store, cfg config.SeedConfig) (*Stats, error) {
	stats := &Stats{}

	var menu []models.CatalogItem
	if cfg.DefaultMenu {
		menu = append(menu, repository.DefaultMenu()...)
	}
	if cfg.Menu != "" {
		var fromFile []models.CatalogItem
		if err := l.decode(ctx, cfg.Menu, &fromFile); err != nil {
			return nil, fmt.Errorf("load menu: %w", err)
		}
		menu = append(menu, fromFile...)
	}
	for _, item := range menu {
		if item.ID == "" || item.Name == "" {
			return nil, fmt.Errorf("menu item %q: id and name are required", item.ID)
		}
		if err := store.Catalog.Upsert(ctx, item); err != nil {
			return nil, fmt.Errorf("upsert menu item %s: %w", item.ID, err)
		}
		stats.MenuItems++
	}

	if len(cfg.Coupons) > 0 {
		coupons, err := l.LoadCoupons(ctx, cfg.Coupons)
		if err != nil {
			return nil, err
		}
		for i := range coupons {
			if err := upsertCoupon(ctx, store.Coupons, &coupons[i]); err != nil {
				return nil, err
			}
			stats.Coupons++
		}
	}

	if cfg.Users != "" {
		var users []models.User
		if err := l.decode(ctx, cfg.Users, &users); err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		for i := range users {
			u := &users[i]
			u.Email = strings.ToLower(strings.TrimSpace(u.Email))
			if u.ID == "" || u.Email == "" {
				return nil, fmt.Errorf("user %d: id and email are required", i+1)
			}
			if err := store.Users.Upsert(ctx, u); err != nil {
				return nil, fmt.Errorf("upsert user %s: %w", u.ID, err)
			}
			stats.Users++
		}
	}

	l.log.InfoContext(ctx, "seed data loaded",
		"menu_items", stats.MenuItems,
		"coupons", stats.Coupons,
		"users", stats.Users,
	)
	return stats, nil
}

// LoadCoupons loads coupon sources concurrently. When a code appears in
// several sources the later source wins. Returns error if any source fails.
func (l *Loader) LoadCoupons(ctx context.Context, sources []string) ([]models.Coupon, error) {
	resultChan := make(chan fileLoadResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(index int, source string) {
			defer wg.Done()

			var coupons []models.Coupon
			err := l.decode(ctx, source, &coupons)
			resultChan <- fileLoadResult{index: index, coupons: coupons, err: err}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results maintaining order
	results := make([]fileLoadResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	position := make(map[string]int)
	var merged []models.Coupon
	for i, result := range results {
		if result.err != nil {
			return nil, fmt.Errorf("failed to load coupon source %d: %w", i+1, result.err)
		}
		for _, c := range result.coupons {
			c.Code = models.NormalizeCouponCode(c.Code)
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("coupon source %d: coupon %q: %w", i+1, c.Code, err)
			}
			if at, ok := position[c.Code]; ok {
				merged[at] = c
				continue
			}
			position[c.Code] = len(merged)
			merged = append(merged, c)
		}
	}

	l.log.DebugContext(ctx, "coupon sources loaded", "sources", len(sources), "coupons", len(merged))
	return merged, nil
}

func upsertCoupon(ctx context.Context, repo repository.CouponRepository, c *models.Coupon) error {
	err := repo.Create(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		err = repo.Update(ctx, c)
	}
	if err != nil {
		return fmt.Errorf("upsert coupon %s: %w", c.Code, err)
	}
	return nil
}

func (l *Loader) decode(ctx context.Context, source string, dst any) error {
	r, err := l.open(ctx, source)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := json.NewDecoder(io.LimitReader(r, maxSourceBytes)).Decode(dst); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	return nil
}

// open returns the decompressed contents of source
func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	var body io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", source, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("download %s: unexpected status code: %d", source, resp.StatusCode)
		}
		body = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", source, err)
		}
		body = f
	}

	br := bufio.NewReader(body)
	magic, _ := br.Peek(2)
	if !bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		return readCloser{Reader: br, closers: []io.Closer{body}}, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return readCloser{Reader: gz, closers: []io.Closer{gz, body}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc readCloser) Close() error {
	var errs []error
	for _, c := range rc.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
