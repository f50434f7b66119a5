package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/placementhq/portal_auth/config"
	"github.com/placementhq/portal_auth/models"
)

// OTPRepository persists hashed OTP records in the "otps" collection.
// Callers serialize operations per email (see services.OTPService), so
// the delete-then-insert in Put never leaves two live records for one
// address.
type OTPRepository struct {
	collection *mongo.Collection
}

func NewOTPRepository(db *mongo.Client) *OTPRepository {
	return &OTPRepository{
		collection: config.GetCollection(db, "otps"),
	}
}

// Put replaces any existing record for the email with a fresh one.
func (r *OTPRepository) Put(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return err
	}

	now := time.Now()
	record := models.Otp{
		Email:     email,
		CodeHash:  codeHash,
		Attempts:  0,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

// Get returns the active record for the email, or nil if there is none.
// Expired records are filtered at read time; the TTL index only removes
// them on a background cadence, and callers must not be able to tell a
// lagging deletion from true absence.
func (r *OTPRepository) Get(ctx context.Context, email string) (*models.Otp, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"email":     email,
		"expiresAt": bson.M{"$gt": time.Now()},
	}

	var record models.Otp
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// IncrementAttempts atomically increments the attempt counter for the
// email's record and returns the new value.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record models.Otp
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		bson.M{"$inc": bson.M{"attempts": 1}},
		opts,
	).Decode(&record)
	if err != nil {
		return 0, err
	}
	return record.Attempts, nil
}

// Delete removes any record for the email. Idempotent.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"email": email})
	return err
}
