package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository/memory"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	pkgkafka "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/kafka"
)

// --- Test Helpers ---

var (
	admin = domain.Actor{UserID: "admin-1", IsAdmin: true}
	alice = domain.Actor{UserID: "user-alice"}
	bob   = domain.Actor{UserID: "user-bob"}
	anon  = domain.Actor{}
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	topics []string
	events []*pkgkafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type testEnv struct {
	store      *memory.Store
	repos      repository.Repositories
	publisher  *recordingPublisher
	metrics    *Metrics
	categories *CategoryService
	products   *ProductService
	reviews    *ReviewService
	identity   *IdentityService
	maint      *MaintenanceService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil, nil)
}

// newTestEnvWith builds the services over a memory store. wrap, when set,
// decorates the store's unit of work.
func newTestEnvWith(t *testing.T, wrap func(repository.UnitOfWork) repository.UnitOfWork, cache repository.ProductDetailCache) *testEnv {
	t.Helper()

	store := memory.NewStore()
	var uow repository.UnitOfWork = store
	if wrap != nil {
		uow = wrap(store)
	}
	repos := store.Repositories()
	logger := newTestLogger()
	pub := &recordingPublisher{}
	producer := event.NewProducer(pub, logger)
	metrics := NewMetrics(prometheus.NewRegistry())

	return &testEnv{
		store:      store,
		repos:      repos,
		publisher:  pub,
		metrics:    metrics,
		categories: NewCategoryService(repos, uow, cache, producer, metrics, logger),
		products:   NewProductService(repos, uow, cache, producer, metrics, logger),
		reviews:    NewReviewService(repos, uow, cache, producer, metrics, logger),
		identity:   NewIdentityService(uow, cache, producer, metrics, logger),
		maint:      NewMaintenanceService(repos, uow, cache, metrics, logger),
	}
}

func (e *testEnv) createCategory(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := e.categories.CreateCategory(context.Background(), admin, &domain.CreateCategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) createProduct(t *testing.T, name, sku string) *domain.Product {
	t.Helper()
	p, err := e.products.CreateProduct(context.Background(), admin, &domain.CreateProductInput{
		Name:     name,
		SKU:      sku,
		Price:    decimal.RequireFromString("19.99"),
		Quantity: 5,
		Status:   domain.ProductStatusPublished,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) review(t *testing.T, actor domain.Actor, slug string, stars int) *domain.Review {
	t.Helper()
	r, err := e.reviews.CreateReview(context.Background(), actor, slug, &domain.CreateReviewInput{
		Rating:  stars,
		Title:   fmt.Sprintf("%d stars", stars),
		Content: "review body",
	})
	require.NoError(t, err)
	return r
}

func (e *testEnv) aggregate(t *testing.T, slug string) string {
	t.Helper()
	p, err := e.repos.Products.GetBySlug(context.Background(), slug)
	require.NoError(t, err)
	return summaryOf(p).String()
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// racingUnitOfWork makes the first conflicts product or category creations
// fail with a slug conflict, as if a concurrent writer had won the race.
type racingUnitOfWork struct {
	inner     repository.UnitOfWork
	conflicts int
	attempts  int
}

func (u *racingUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return u.inner.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repos.Products = &racingProducts{ProductRepository: repos.Products, uow: u}
		repos.Categories = &racingCategories{CategoryRepository: repos.Categories, uow: u}
		return fn(ctx, repos)
	})
}

func (u *racingUnitOfWork) lose(slug string) error {
	u.attempts++
	if u.attempts <= u.conflicts {
		return fmt.Errorf("%w: %w", domain.ErrSlugConflict, apperrors.AlreadyExists("record", "slug", slug))
	}
	return nil
}

type racingProducts struct {
	repository.ProductRepository
	uow *racingUnitOfWork
}

func (r *racingProducts) Create(ctx context.Context, p *domain.Product) error {
	if err := r.uow.lose(p.Slug); err != nil {
		return err
	}
	return r.ProductRepository.Create(ctx, p)
}

type racingCategories struct {
	repository.CategoryRepository
	uow *racingUnitOfWork
}

func (r *racingCategories) Create(ctx context.Context, c *domain.Category) error {
	if err := r.uow.lose(c.Slug); err != nil {
		return err
	}
	return r.CategoryRepository.Create(ctx, c)
}
