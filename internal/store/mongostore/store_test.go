package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bingKegeta/GeoTourist-Backend/pkg/twofactor"
)

func TestObjectIDFromHandle(t *testing.T) {
	oid := primitive.NewObjectID()

	got, err := objectIDFromHandle(oid[:])
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = objectIDFromHandle([]byte("too short"))
	assert.Error(t, err)

	_, err = objectIDFromHandle(nil)
	assert.Error(t, err)
}

func TestBinaryID(t *testing.T) {
	b := binaryID([]byte{0x01, 0x02})
	assert.Equal(t, byte(0x00), b.Subtype)
	assert.Equal(t, []byte{0x01, 0x02}, b.Data)
}

func TestDirectory_GetByIDRejectsBadHandle(t *testing.T) {
	// A malformed handle cannot reference any user; the lookup fails before
	// any query is issued.
	d := &Directory{}
	_, err := d.GetByID(context.Background(), []byte("not-an-object-id"))
	assert.ErrorIs(t, err, twofactor.ErrUserNotFound)
}
