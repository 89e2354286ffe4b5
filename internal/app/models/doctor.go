package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Doctor is a reference document. Profile CRUD over it lives outside
// this service; the engine only reads it for existence checks and the
// fee snapshot.
type Doctor struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName string             `bson:"firstName" json:"first_name"`
	LastName  string             `bson:"lastName" json:"last_name"`
	Email     string             `bson:"email" json:"email"`
	Specialty string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Rate      float64            `bson:"rate" json:"rate"`
	Currency  string             `bson:"currency,omitempty" json:"currency,omitempty"`
}
