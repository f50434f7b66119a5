package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Otp represents one outstanding login challenge for an email.
// The code is stored bcrypt-hashed, never in plaintext.
type Otp struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	CodeHash  string             `bson:"codeHash"`
	Attempts  int                `bson:"attempts"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
}
