package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPairKey_OrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, primitive.NewObjectID()))
}

func TestConversationParticipants(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	c := &Conversation{Participants: []primitive.ObjectID{a, b}}

	assert.True(t, c.HasParticipant(a))
	assert.True(t, c.HasParticipant(b))
	assert.False(t, c.HasParticipant(stranger))

	counterpart, ok := c.Counterpart(a)
	assert.True(t, ok)
	assert.Equal(t, b, counterpart)

	_, ok = c.Counterpart(stranger)
	assert.False(t, ok)
}

func TestUnreadFor(t *testing.T) {
	a := primitive.NewObjectID()
	c := &Conversation{}
	assert.Equal(t, int64(0), c.UnreadFor(a))

	c.Unread = map[string]int64{a.Hex(): 3}
	assert.Equal(t, int64(3), c.UnreadFor(a))
}

func TestDocumentTypeRequiredImages(t *testing.T) {
	assert.Equal(t, 1, DocumentPassport.RequiredImages())
	assert.Equal(t, 2, DocumentStudentCard.RequiredImages())
	assert.Equal(t, 2, DocumentResidentialCard.RequiredImages())
}
