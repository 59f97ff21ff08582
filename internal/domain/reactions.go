package domain

// ReactionKind is what a single user can press on a content entry.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Reactions holds like/dislike counters plus the local user's current choice.
// UserReaction is nil when the user has no active reaction, matching the
// wire format's null.
type Reactions struct {
	Likes        int           `json:"likes"`
	Dislikes     int           `json:"dislikes"`
	UserReaction *ReactionKind `json:"userReaction"`
}

// Toggle applies one reaction press and returns the resulting state.
//
// Pressing the active reaction clears it (toggle-off). Pressing the other
// reaction moves the user's vote: the previous counter is decremented, the
// new one incremented. Counters never go negative under sequential use
// because only UserReaction ever drives a decrement.
func (r Reactions) Toggle(kind ReactionKind) Reactions {
	next := r

	if r.UserReaction != nil && *r.UserReaction == kind {
		next.bump(kind, -1)
		next.UserReaction = nil
		return next
	}

	if r.UserReaction != nil {
		next.bump(*r.UserReaction, -1)
	}
	next.bump(kind, +1)
	k := kind
	next.UserReaction = &k
	return next
}

func (r *Reactions) bump(kind ReactionKind, delta int) {
	switch kind {
	case ReactionLike:
		r.Likes += delta
	case ReactionDislike:
		r.Dislikes += delta
	}
}
