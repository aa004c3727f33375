package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/slug"
)

// maxSlugAttempts bounds how often a derived slug is re-derived after losing
// a race on the unique constraint.
const maxSlugAttempts = 3

// slugLister loads the slugs of one scope that collide with base, leaving
// out the record excludeID.
type slugLister func(ctx context.Context, base, excludeID string) ([]string, error)

// deriveSlug assigns a slug for name that is free in the scope served by
// list at the time of the call.
func deriveSlug(ctx context.Context, name, excludeID string, list slugLister) (string, error) {
	taken, err := list(ctx, slug.Base(name), excludeID)
	if err != nil {
		return "", fmt.Errorf("load colliding slugs: %w", err)
	}
	return slug.Assign(name, slug.Taken(taken...)), nil
}

// withSlugRetry runs attempt and, when attempt reports that the slug it wrote
// was derived, runs it again after a slug conflict so the slug is derived
// from fresh data. A conflict on a caller supplied slug is returned as is.
func withSlugRetry(ctx context.Context, entity string, metrics *Metrics, attempt func(ctx context.Context) (derived bool, err error)) error {
	for n := 1; ; n++ {
		derived, err := attempt(ctx)
		if err == nil || !errors.Is(err, domain.ErrSlugConflict) {
			return err
		}

		metrics.slugCollision(entity)
		if !derived {
			return err
		}
		if n >= maxSlugAttempts {
			return apperrors.Conflict(fmt.Sprintf("could not assign a unique %s slug after %d attempts", entity, n))
		}
	}
}

// explicitSlug returns the caller supplied slug, or "" when none was given.
func explicitSlug(s *string) (string, error) {
	if s == nil || *s == "" {
		return "", nil
	}
	if !slug.Valid(*s) {
		return "", apperrors.InvalidInput(fmt.Sprintf("slug %q must be lowercase letters, digits and single hyphens", *s))
	}
	return *s, nil
}
