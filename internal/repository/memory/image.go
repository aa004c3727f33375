package memory

import (
	"context"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

// ImageRepository implements repository.ImageRepository in memory.
type ImageRepository struct {
	s *Store
}

// Add inserts an image. A product holds at most one default image.
func (r *ImageRepository) Add(_ context.Context, img *domain.ProductImage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[img.ProductID]; !ok {
		return apperrors.NotFound("product", img.ProductID)
	}
	if img.IsDefault {
		for _, other := range r.s.images {
			if other.ProductID == img.ProductID && other.IsDefault {
				return apperrors.Conflict("product already has a default image")
			}
		}
	}

	r.s.images[img.ID] = *img
	return nil
}

// ClearDefault unsets the default flag on every image of a product.
func (r *ImageRepository) ClearDefault(_ context.Context, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, img := range r.s.images {
		if img.ProductID == productID && img.IsDefault {
			img.IsDefault = false
			r.s.images[id] = img
		}
	}
	return nil
}

// ListByProduct returns the images of a product, default first.
func (r *ImageRepository) ListByProduct(_ context.Context, productID string) ([]domain.ProductImage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	images := []domain.ProductImage{}
	for _, img := range r.s.images {
		if img.ProductID == productID {
			images = append(images, img)
		}
	}
	domain.SortImages(images)
	return images, nil
}

// Delete removes one image of a product.
func (r *ImageRepository) Delete(_ context.Context, productID, imageID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	img, ok := r.s.images[imageID]
	if !ok || img.ProductID != productID {
		return apperrors.NotFound("product image", imageID)
	}
	delete(r.s.images, imageID)
	return nil
}
