// Package mongostore provides MongoDB-backed implementations of the
// two-factor user directory and credential store. Users live in the
// pre-existing users collection and are never written here; ceremony state
// lives in a dedicated two_factor collection keyed by user ID.
package mongostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bingKegeta/GeoTourist-Backend/pkg/twofactor"
)

const (
	usersCollection     = "users"
	twoFactorCollection = "two_factor"
)

// userDoc is the subset of the users collection the directory reads.
type userDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	Email string             `bson:"email"`
	Name  string             `bson:"name,omitempty"`
}

// twoFactorDoc is one user's ceremony state document.
type twoFactorDoc struct {
	UserID         primitive.Binary            `bson:"_id"`
	Authenticators []*twofactor.Authenticator  `bson:"authenticators,omitempty"`
	Challenge      *twofactor.PendingChallenge `bson:"challenge,omitempty"`
}

// Directory reads users from the backend's users collection.
type Directory struct {
	users *mongo.Collection
}

// NewDirectory creates a user directory over the given database.
func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{users: db.Collection(usersCollection)}
}

// GetByID retrieves a user by their stable handle. The handle is the raw
// bytes of the user document's ObjectID.
func (d *Directory) GetByID(ctx context.Context, userID []byte) (*twofactor.User, error) {
	oid, err := objectIDFromHandle(userID)
	if err != nil {
		return nil, twofactor.ErrUserNotFound
	}
	return d.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail retrieves a user by email address.
func (d *Directory) GetByEmail(ctx context.Context, email string) (*twofactor.User, error) {
	return d.findOne(ctx, bson.M{"email": email})
}

func (d *Directory) findOne(ctx context.Context, filter bson.M) (*twofactor.User, error) {
	var doc userDoc
	if err := d.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, twofactor.ErrUserNotFound
		}
		return nil, fmt.Errorf("query users: %w", err)
	}
	return &twofactor.User{
		ID:          doc.ID[:],
		Email:       doc.Email,
		DisplayName: doc.Name,
	}, nil
}

// CredentialStore persists authenticators and pending challenges in the
// two_factor collection, one document per user. The first write for a user
// upserts the document; there is no provisioning step.
type CredentialStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewCredentialStore creates a credential store over the given database.
func NewCredentialStore(db *mongo.Database) *CredentialStore {
	return &CredentialStore{
		coll: db.Collection(twoFactorCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Authenticators returns all authenticators registered for a user. A user
// with no document or an empty list yields an empty slice.
func (s *CredentialStore) Authenticators(ctx context.Context, userID []byte) ([]*twofactor.Authenticator, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return []*twofactor.Authenticator{}, nil
	}
	if doc.Authenticators == nil {
		return []*twofactor.Authenticator{}, nil
	}
	return doc.Authenticators, nil
}

// Authenticator returns the user's authenticator with the given credential ID.
func (s *CredentialStore) Authenticator(ctx context.Context, userID, credentialID []byte) (*twofactor.Authenticator, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		for _, a := range doc.Authenticators {
			if bytes.Equal(a.CredentialID, credentialID) {
				return a, nil
			}
		}
	}
	return nil, twofactor.ErrAuthenticatorNotFound
}

// AddAuthenticator appends a new authenticator. The filter excludes documents
// already holding the credential ID, so the duplicate check and the push are
// one atomic update; a concurrent duplicate add surfaces as either a
// non-matching update or a duplicate-key error from the upsert race.
func (s *CredentialStore) AddAuthenticator(ctx context.Context, userID []byte, a *twofactor.Authenticator) error {
	filter := bson.M{
		"_id":                          binaryID(userID),
		"authenticators.credential_id": bson.M{"$ne": a.CredentialID},
	}
	update := bson.M{"$push": bson.M{"authenticators": a}}

	res, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return twofactor.ErrDuplicateCredential
		}
		return fmt.Errorf("push authenticator: %w", err)
	}
	if res.ModifiedCount == 0 && res.UpsertedCount == 0 {
		return twofactor.ErrDuplicateCredential
	}
	return nil
}

// UpdateCounter persists a new sign counter on the identified authenticator.
// $max keeps the stored value from ever decreasing even under racing writes.
func (s *CredentialStore) UpdateCounter(ctx context.Context, userID, credentialID []byte, signCount uint32) error {
	filter := bson.M{
		"_id":                          binaryID(userID),
		"authenticators.credential_id": credentialID,
	}
	update := bson.M{
		"$max": bson.M{"authenticators.$.sign_count": signCount},
		"$set": bson.M{"authenticators.$.last_used_at": s.now()},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update sign count: %w", err)
	}
	if res.MatchedCount == 0 {
		return twofactor.ErrAuthenticatorNotFound
	}
	return nil
}

// SetChallenge stores the user's pending challenge, overwriting any prior
// value.
func (s *CredentialStore) SetChallenge(ctx context.Context, userID []byte, c *twofactor.PendingChallenge) error {
	filter := bson.M{"_id": binaryID(userID)}
	update := bson.M{"$set": bson.M{"challenge": c}}

	if _, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("set challenge: %w", err)
	}
	return nil
}

// Challenge returns the user's pending challenge.
func (s *CredentialStore) Challenge(ctx context.Context, userID []byte) (*twofactor.PendingChallenge, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Challenge == nil {
		return nil, twofactor.ErrNoPendingChallenge
	}
	return doc.Challenge, nil
}

// ClearChallenge removes the user's pending challenge. Clearing an absent
// challenge is not an error.
func (s *CredentialStore) ClearChallenge(ctx context.Context, userID []byte) error {
	filter := bson.M{"_id": binaryID(userID)}
	update := bson.M{"$unset": bson.M{"challenge": ""}}

	if _, err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	return nil
}

// load fetches the user's ceremony document, nil when absent.
func (s *CredentialStore) load(ctx context.Context, userID []byte) (*twoFactorDoc, error) {
	var doc twoFactorDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": binaryID(userID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("query two_factor: %w", err)
	}
	return &doc, nil
}

// binaryID wraps a raw user handle as a BSON binary so the _id filter matches
// the stored subtype exactly.
func binaryID(userID []byte) primitive.Binary {
	return primitive.Binary{Subtype: 0x00, Data: userID}
}

// objectIDFromHandle converts a raw user handle back to the ObjectID it was
// derived from.
func objectIDFromHandle(userID []byte) (primitive.ObjectID, error) {
	if len(userID) != 12 {
		return primitive.NilObjectID, fmt.Errorf("user handle is %d bytes, want 12", len(userID))
	}
	var oid primitive.ObjectID
	copy(oid[:], userID)
	return oid, nil
}
