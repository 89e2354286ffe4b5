package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Patient is a reference document used for existence checks and payer
// details on gateway charges.
type Patient struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName string             `bson:"firstName" json:"first_name"`
	LastName  string             `bson:"lastName" json:"last_name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
}
