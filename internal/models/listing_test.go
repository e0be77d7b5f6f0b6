package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListingVisibleAt(t *testing.T) {
	now := time.Now().UTC()

	active := &Listing{Status: ListingActive, ModerationStatus: ModerationApproved}
	assert.True(t, active.VisibleAt(now))

	pending := &Listing{Status: ListingActive, ModerationStatus: ModerationPending}
	assert.False(t, pending.VisibleAt(now))

	rejected := &Listing{Status: ListingRemoved, ModerationStatus: ModerationRejected}
	assert.False(t, rejected.VisibleAt(now))

	sold := &Listing{Status: ListingSold, ModerationStatus: ModerationApproved}
	assert.False(t, sold.VisibleAt(now))
}

func TestListingVisibleAt_SoftDeleteGraceWindow(t *testing.T) {
	now := time.Now().UTC()

	recent := now.Add(-time.Hour)
	inGrace := &Listing{
		Status:           ListingSold,
		ModerationStatus: ModerationApproved,
		IsDeleted:        true,
		DeletedAt:        &recent,
	}
	assert.True(t, inGrace.VisibleAt(now))
	assert.False(t, inGrace.Expired(now))
	assert.Equal(t, ListingSold, inGrace.DisplayStatus())

	old := now.Add(-DeleteGracePeriod - time.Minute)
	lapsed := &Listing{
		Status:           ListingSold,
		ModerationStatus: ModerationApproved,
		IsDeleted:        true,
		DeletedAt:        &old,
	}
	assert.False(t, lapsed.VisibleAt(now))
	assert.True(t, lapsed.Expired(now))

	// Exactly at the boundary: still visible, not yet purgeable.
	boundary := now.Add(-DeleteGracePeriod)
	edge := &Listing{
		Status:           ListingActive,
		ModerationStatus: ModerationApproved,
		IsDeleted:        true,
		DeletedAt:        &boundary,
	}
	assert.True(t, edge.VisibleAt(now))
	assert.False(t, edge.Expired(now))
}

func TestDisplayStatus_DeletedShowsSold(t *testing.T) {
	deleted := &Listing{Status: ListingActive, IsDeleted: true}
	assert.Equal(t, ListingSold, deleted.DisplayStatus())

	live := &Listing{Status: ListingActive}
	assert.Equal(t, ListingActive, live.DisplayStatus())
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, CategoryElectronics.Valid())
	assert.False(t, Category("weapons").Valid())
	assert.True(t, ConditionLikeNew.Valid())
	assert.False(t, Condition("broken").Valid())
	assert.True(t, AreaCentral.Valid())
	assert.False(t, Area("offshore").Valid())
	assert.True(t, DeleteReasonSold.Valid())
	assert.False(t, DeleteReason("").Valid())
}
