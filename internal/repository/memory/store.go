// Package memory provides in-memory repositories for local development and
// tests. Uniqueness, foreign keys and cascades mirror the SQL migrations.
package memory

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
)

var (
	_ repository.UnitOfWork         = (*Store)(nil)
	_ repository.CategoryRepository = (*CategoryRepository)(nil)
	_ repository.ProductRepository  = (*ProductRepository)(nil)
	_ repository.ImageRepository    = (*ImageRepository)(nil)
	_ repository.ReviewRepository   = (*ReviewRepository)(nil)
)

// Store holds every catalog table in memory. It implements
// repository.UnitOfWork: transactions run one at a time and a failed
// transaction restores the state it started from.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	categories map[string]domain.Category
	products   map[string]domain.Product
	images     map[string]domain.ProductImage
	reviews    map[string]domain.Review
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		categories: make(map[string]domain.Category),
		products:   make(map[string]domain.Product),
		images:     make(map[string]domain.ProductImage),
		reviews:    make(map[string]domain.Review),
	}
}

// Repositories returns repositories backed by the store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Categories: &CategoryRepository{s: s},
		Products:   &ProductRepository{s: s},
		Images:     &ImageRepository{s: s},
		Reviews:    &ReviewRepository{s: s},
	}
}

// WithinTx implements repository.UnitOfWork.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(ctx, s.Repositories())
}

type snapshot struct {
	categories map[string]domain.Category
	products   map[string]domain.Product
	images     map[string]domain.ProductImage
	reviews    map[string]domain.Review
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return snapshot{
		categories: cloneMap(s.categories),
		products:   cloneMap(s.products),
		images:     cloneMap(s.images),
		reviews:    cloneMap(s.reviews),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = snap.categories
	s.products = snap.products
	s.images = snap.images
	s.reviews = snap.reviews
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// slugsWithPrefix collects slugs equal to base or starting with base-.
func slugsWithPrefix(slugs iter.Seq2[string, string], base, excludeID string) []string {
	var out []string
	for id, s := range slugs {
		if id == excludeID {
			continue
		}
		if s == base || strings.HasPrefix(s, base+"-") {
			out = append(out, s)
		}
	}
	return out
}
