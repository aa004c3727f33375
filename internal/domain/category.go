package domain

import (
	"time"
)

// Category is a node in the catalog tree. Deleting a category deletes its
// descendants; products in any of them keep existing without a category.
type Category struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	ParentID    *string     `json:"parent_id,omitempty"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Children    []*Category `json:"children,omitempty"`
}

// CreateCategoryInput holds the parameters for creating a category. Slug is
// derived from Name when omitted.
type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,slug,max=100"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateCategoryInput holds the parameters for updating a category. A nil
// field is left unchanged; renaming never re-derives the slug.
type UpdateCategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,slug,max=100"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	ParentSlug      *string
	HasProducts     *bool
	IncludeInactive bool
}

// BuildCategoryTree nests categories under their parents. Categories whose
// parent is not in the list become roots. Input order is kept among siblings.
func BuildCategoryTree(categories []Category) []*Category {
	nodes := make([]*Category, len(categories))
	byID := make(map[string]*Category, len(categories))
	for i := range categories {
		c := categories[i]
		c.Children = []*Category{}
		nodes[i] = &c
		byID[c.ID] = &c
	}

	roots := []*Category{}
	for _, c := range nodes {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok && parent != c {
				parent.Children = append(parent.Children, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}
