package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingStatus is the sale state of a listing, independent of moderation.
type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingSold    ListingStatus = "sold"
	ListingPending ListingStatus = "pending"
	ListingRemoved ListingStatus = "removed"
)

// ModerationStatus is the admin-controlled approval state of a listing.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Category is the closed set of listing categories.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFurniture   Category = "furniture"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategorySports      Category = "sports"
	CategoryVehicles    Category = "vehicles"
	CategoryAppliances  Category = "appliances"
	CategoryOther       Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryBooks,
		CategorySports, CategoryVehicles, CategoryAppliances, CategoryOther:
		return true
	}
	return false
}

// Condition is the closed set of item conditions.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Area is the closed set of location areas.
type Area string

const (
	AreaCentral Area = "central"
	AreaNorth   Area = "north"
	AreaSouth   Area = "south"
	AreaEast    Area = "east"
	AreaWest    Area = "west"
)

// Valid reports whether a is a known area.
func (a Area) Valid() bool {
	switch a {
	case AreaCentral, AreaNorth, AreaSouth, AreaEast, AreaWest:
		return true
	}
	return false
}

// Location combines a fixed area with a free-form city name.
type Location struct {
	Area Area   `bson:"area" json:"area"`
	City string `bson:"city,omitempty" json:"city,omitempty"`
}

// DeleteReason is the closed set of reasons a seller may give when removing
// a listing.
type DeleteReason string

const (
	DeleteReasonSold          DeleteReason = "sold"
	DeleteReasonChangedMind   DeleteReason = "changed_mind"
	DeleteReasonListedInError DeleteReason = "listed_in_error"
	DeleteReasonOther         DeleteReason = "other"
)

// Valid reports whether r is a known delete reason.
func (r DeleteReason) Valid() bool {
	switch r {
	case DeleteReasonSold, DeleteReasonChangedMind, DeleteReasonListedInError, DeleteReasonOther:
		return true
	}
	return false
}

// Report records a single user report against a listing. A user may report
// a listing at most once.
type Report struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Reason    string             `bson:"reason" json:"reason"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

const (
	// DeleteGracePeriod is how long a soft-deleted listing stays retrievable
	// (shown as sold) before the sweeper purges it. The read path and the
	// sweeper must both use this constant.
	DeleteGracePeriod = 48 * time.Hour

	// ReportReviewThreshold is the number of distinct reports that forces a
	// listing back into moderation.
	ReportReviewThreshold = 3
)

// Listing represents a posted item for sale.
type Listing struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           primitive.ObjectID   `bson:"user_id" json:"user_id"` // seller
	Title            string               `bson:"title" json:"title"`
	Description      string               `bson:"description" json:"description"`
	Price            int64                `bson:"price" json:"price"` // whole currency units, >= 1
	Category         Category             `bson:"category" json:"category"`
	Condition        Condition            `bson:"condition" json:"condition"`
	Images           []string             `bson:"images" json:"images"` // S3 keys, append-only
	Location         Location             `bson:"location" json:"location"`
	Status           ListingStatus        `bson:"status" json:"status"`
	ModerationStatus ModerationStatus     `bson:"moderation_status" json:"moderation_status"`
	ModerationNote   string               `bson:"moderation_note,omitempty" json:"moderation_note,omitempty"`
	Featured         bool                 `bson:"featured" json:"featured"`
	Views            int64                `bson:"views" json:"views"`
	ViewedBy         []primitive.ObjectID `bson:"viewed_by,omitempty" json:"-"`
	FavoritesCount   int64                `bson:"favorites_count" json:"favorites_count"`
	Reports          []Report             `bson:"reports,omitempty" json:"-"`
	IsDeleted        bool                 `bson:"is_deleted" json:"is_deleted"`
	DeletedAt        *time.Time           `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeleteReason     DeleteReason         `bson:"delete_reason,omitempty" json:"delete_reason,omitempty"`
	CreatedAt        time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updated_at"`
}

// VisibleAt reports whether the listing is publicly visible at the given
// time: it must be moderation-approved and either live (active, not deleted)
// or soft-deleted within the grace window.
func (l *Listing) VisibleAt(now time.Time) bool {
	if l.ModerationStatus != ModerationApproved {
		return false
	}
	if l.IsDeleted {
		return l.DeletedAt != nil && now.Sub(*l.DeletedAt) <= DeleteGracePeriod
	}
	return l.Status == ListingActive
}

// Expired reports whether the soft-delete grace window has elapsed and the
// listing is due for permanent purge.
func (l *Listing) Expired(now time.Time) bool {
	return l.IsDeleted && l.DeletedAt != nil && now.Sub(*l.DeletedAt) > DeleteGracePeriod
}

// DisplayStatus is the status shown to the public: soft-deleted listings in
// their grace window appear as sold.
func (l *Listing) DisplayStatus() ListingStatus {
	if l.IsDeleted {
		return ListingSold
	}
	return l.Status
}
