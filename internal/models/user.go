package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationStatus is the identity verification state of a user.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationApproved   VerificationStatus = "approved"
	VerificationRejected   VerificationStatus = "rejected"
)

// DocumentType identifies the kind of identity document submitted.
type DocumentType string

const (
	DocumentPassport        DocumentType = "passport"
	DocumentStudentCard     DocumentType = "student_card"
	DocumentResidentialCard DocumentType = "residential_card"
)

// RequiredImages returns how many document images a submission must carry:
// one page for a passport, front and back for card documents.
func (d DocumentType) RequiredImages() int {
	if d == DocumentPassport {
		return 1
	}
	return 2
}

// Valid reports whether d is one of the accepted document types.
func (d DocumentType) Valid() bool {
	switch d {
	case DocumentPassport, DocumentStudentCard, DocumentResidentialCard:
		return true
	}
	return false
}

// Verification is the embedded identity verification sub-record of a user.
// It is mutated only by the owning user (submit) and by an admin (review).
type Verification struct {
	Status          VerificationStatus  `bson:"status" json:"status"`
	DocumentType    DocumentType        `bson:"document_type,omitempty" json:"document_type,omitempty"`
	Images          []string            `bson:"images,omitempty" json:"images,omitempty"` // S3 keys
	SubmittedAt     *time.Time          `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
}

// User represents an account in the system. Users are never hard-deleted,
// only deactivated via IsActive=false.
type User struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Email         string               `bson:"email" json:"email"`
	PasswordHash  string               `bson:"password" json:"-"`
	Name          string               `bson:"name" json:"name"`
	Avatar        string               `bson:"avatar,omitempty" json:"avatar,omitempty"` // S3 key
	Location      string               `bson:"location,omitempty" json:"location,omitempty"`
	RatingSum     float64              `bson:"rating_sum" json:"-"`
	RatingCount   int64                `bson:"rating_count" json:"rating_count"`
	SalesCount    int64                `bson:"sales_count" json:"sales_count"`
	Favorites     []primitive.ObjectID `bson:"favorites,omitempty" json:"favorites,omitempty"`
	IsAdmin       bool                 `bson:"is_admin" json:"is_admin"`
	IsActive      bool                 `bson:"is_active" json:"is_active"`
	Verification  Verification         `bson:"verification" json:"verification"`
	Notifications []Notification       `bson:"notifications,omitempty" json:"-"`
	LastSeenAt    time.Time            `bson:"last_seen_at" json:"last_seen_at"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// Rating returns the running average rating, 0 when unrated.
func (u *User) Rating() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return u.RatingSum / float64(u.RatingCount)
}

// PublicProfile is the subset of a user exposed to other users.
type PublicProfile struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name"`
	Avatar     string             `json:"avatar,omitempty"`
	Location   string             `json:"location,omitempty"`
	Rating     float64            `json:"rating"`
	SalesCount int64              `json:"sales_count"`
	Verified   bool               `json:"verified"`
	LastSeenAt time.Time          `json:"last_seen_at"`
	// Online is live-connection presence, filled from the realtime registry
	// where one is available. Advisory; LastSeenAt is the durable signal.
	Online bool `json:"online"`
}

// Public strips the user down to its public profile fields.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Avatar:     u.Avatar,
		Location:   u.Location,
		Rating:     u.Rating(),
		SalesCount: u.SalesCount,
		Verified:   u.Verification.Status == VerificationApproved,
		LastSeenAt: u.LastSeenAt,
	}
}
