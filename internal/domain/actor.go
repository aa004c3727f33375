package domain

import "errors"

// ErrSlugConflict reports that a slug was taken between the collision check
// and the write. Creation paths that derived the slug retry on it.
var ErrSlugConflict = errors.New("slug already taken")

// Actor is the identity performing an operation, as supplied by the identity
// provider. The zero value is an anonymous caller.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Anonymous reports whether no identity is attached.
func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// CanModifyReview reports whether the actor may edit or delete r.
func (a Actor) CanModifyReview(r *Review) bool {
	return a.IsAdmin || (!a.Anonymous() && a.UserID == r.UserID)
}
