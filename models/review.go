package models

import (
	"encoding/json"
	"time"
)

// ReviewState is the visibility state of a product review.
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewApproved ReviewState = "approved"
	ReviewHidden   ReviewState = "hidden"
	ReviewRejected ReviewState = "rejected"
)

// ReviewAction names a transition of the review state machine.
type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
	ActionHide    ReviewAction = "hide"
	ActionRestore ReviewAction = "restore"
	ActionAppeal  ReviewAction = "appeal"
	// ActionAutoFlag is applied by the store when FlaggedCount reaches FlagHideThreshold.
	ActionAutoFlag ReviewAction = "auto_flag"
)

// FlagHideThreshold is the flag count at which a review is forced out of public view.
const FlagHideThreshold = 5

// reviewTransitions lists every legal (state, action) pair. Rejected has no exits.
var reviewTransitions = map[ReviewState]map[ReviewAction]ReviewState{
	ReviewPending: {
		ActionApprove:  ReviewApproved,
		ActionReject:   ReviewRejected,
		ActionAutoFlag: ReviewHidden,
	},
	ReviewApproved: {
		ActionHide:     ReviewHidden,
		ActionAutoFlag: ReviewHidden,
	},
	ReviewHidden: {
		ActionRestore: ReviewApproved,
		ActionAppeal:  ReviewPending,
	},
}

// NextReviewState returns the state reached by applying action to from.
func NextReviewState(from ReviewState, action ReviewAction) (ReviewState, bool) {
	next, ok := reviewTransitions[from][action]
	return next, ok
}

// IsManualReviewAction reports whether action may be requested by staff.
func IsManualReviewAction(action ReviewAction) bool {
	switch action {
	case ActionApprove, ActionReject, ActionHide, ActionRestore, ActionAppeal:
		return true
	}
	return false
}

// Review is a customer review of a product. Records are only mutated through the review store.
type Review struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	ProductID    string      `gorm:"index;size:128;not null" json:"productId"`
	AuthorName   string      `gorm:"size:100;not null" json:"name"`
	AuthorEmail  string      `gorm:"size:255;not null" json:"-"`
	Rating       int         `gorm:"not null" json:"rating"`
	Title        string      `gorm:"size:100;not null" json:"title"`
	Comment      string      `gorm:"type:text;not null" json:"comment"`
	State        ReviewState `gorm:"index;size:16;not null" json:"state"`
	IsVerified   bool        `gorm:"not null;default:false" json:"isVerified"`
	HelpfulCount int         `gorm:"not null;default:0" json:"helpfulCount"`
	FlaggedCount int         `gorm:"not null;default:0" json:"flaggedCount"`
	CreatedAt    time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// IsApproved reports whether the review is publicly visible.
func (r Review) IsApproved() bool {
	return r.State == ReviewApproved
}

// Apply moves the review through the state machine and applies the side effects of the transition.
func (r *Review) Apply(action ReviewAction) bool {
	next, ok := NextReviewState(r.State, action)
	if !ok {
		return false
	}
	if action == ActionRestore || action == ActionAppeal {
		r.FlaggedCount = 0
	}
	r.State = next
	return true
}

// MarshalJSON adds the derived isApproved flag expected by storefront clients.
func (r Review) MarshalJSON() ([]byte, error) {
	type alias Review
	return json.Marshal(struct {
		alias
		IsApproved bool `json:"isApproved"`
	}{alias: alias(r), IsApproved: r.IsApproved()})
}
