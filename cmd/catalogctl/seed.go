package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/slug"
)

var seedAdmin = domain.Actor{UserID: "seed-admin", IsAdmin: true}

// seedCategories maps each top-level category to its children.
var seedCategories = []struct {
	name     string
	children []string
}{
	{"Home & Garden", []string{"Furniture", "Garden Tools", "Lighting"}},
	{"Kitchen", []string{"Cookware", "Tableware"}},
	{"Outdoor", []string{"Camping", "Grills"}},
}

var (
	adjectives = []string{"Classic", "Rustic", "Modern", "Compact", "Deluxe", "Foldable", "Vintage", "Premium"}
	nouns      = []string{"Chair", "Lamp", "Rake", "Skillet", "Plate Set", "Lantern", "Tent", "Grill", "Bench", "Planter"}
	reviewText = []string{"Does the job.", "Great value.", "Sturdy and well made.", "Not what I expected.", "Would buy again."}
)

// seedResult counts what a seed run created and skipped.
type seedResult struct {
	Categories int
	Products   int
	Reviews    int
	Skipped    int
}

// seeder fills the catalog with deterministic demo data through the
// services, so slugs and rating aggregates are assigned as in production.
// Re-running with the same seed skips records that already exist.
type seeder struct {
	categories *service.CategoryService
	products   *service.ProductService
	reviews    *service.ReviewService
	rng        *rand.Rand
}

func newSeeder(env *environment, seed uint64) *seeder {
	return &seeder{
		categories: env.categories,
		products:   env.products,
		reviews:    env.reviews,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), // #nosec G404 -- demo data
	}
}

func (s *seeder) run(ctx context.Context, products, maxReviews int) (seedResult, error) {
	var res seedResult

	var leaves []string
	for _, top := range seedCategories {
		parent, created, err := s.category(ctx, top.name, nil)
		if err != nil {
			return res, err
		}
		res.count(created, &res.Categories)
		for _, child := range top.children {
			c, created, err := s.category(ctx, child, &parent.ID)
			if err != nil {
				return res, err
			}
			res.count(created, &res.Categories)
			leaves = append(leaves, c.ID)
		}
	}

	for i := range products {
		p, created, err := s.product(ctx, i, leaves)
		if err != nil {
			return res, err
		}
		res.count(created, &res.Products)
		if !created {
			continue
		}

		for n := range s.rng.IntN(maxReviews + 1) {
			actor := domain.Actor{UserID: fmt.Sprintf("seed-user-%d", n), IsAdmin: true}
			_, err := s.reviews.CreateReview(ctx, actor, p.Slug, &domain.CreateReviewInput{
				Rating:  1 + s.rng.IntN(5),
				Title:   fmt.Sprintf("Review %d of %s", n+1, p.Name),
				Content: reviewText[s.rng.IntN(len(reviewText))],
			})
			if err != nil {
				return res, fmt.Errorf("seed review for %s: %w", p.Slug, err)
			}
			res.Reviews++
		}
	}
	return res, nil
}

func (r *seedResult) count(created bool, n *int) {
	if created {
		*n++
	} else {
		r.Skipped++
	}
}

func (s *seeder) category(ctx context.Context, name string, parentID *string) (*domain.Category, bool, error) {
	explicit := slug.Generate(name)
	c, err := s.categories.CreateCategory(ctx, seedAdmin, &domain.CreateCategoryInput{
		Name:     name,
		Slug:     &explicit,
		ParentID: parentID,
	})
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		c, err = s.categories.GetCategory(ctx, seedAdmin, explicit)
		return c, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("seed category %q: %w", name, err)
	}
	return c, true, nil
}

func (s *seeder) product(ctx context.Context, i int, categoryIDs []string) (*domain.Product, bool, error) {
	name := adjectives[s.rng.IntN(len(adjectives))] + " " + nouns[s.rng.IntN(len(nouns))]
	price := decimal.New(int64(500+s.rng.IntN(49500)), -2)
	var compare *decimal.Decimal
	if s.rng.IntN(4) == 0 {
		c := price.Mul(decimal.RequireFromString("1.25")).Round(2)
		compare = &c
	}
	categoryID := categoryIDs[s.rng.IntN(len(categoryIDs))]
	quantity := s.rng.IntN(200)

	p, err := s.products.CreateProduct(ctx, seedAdmin, &domain.CreateProductInput{
		Name:         name,
		Description:  fmt.Sprintf("%s from the demo catalog.", name),
		Price:        price,
		ComparePrice: compare,
		SKU:          fmt.Sprintf("SEED-%05d", i),
		Quantity:     quantity,
		CategoryID:   &categoryID,
		Status:       domain.ProductStatusPublished,
		Featured:     i%25 == 0,
	})
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("seed product %d: %w", i, err)
	}
	return p, true, nil
}
