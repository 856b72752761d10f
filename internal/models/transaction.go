package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionPaid      TransactionStatus = "paid"
	TransactionRefunded  TransactionStatus = "refunded"
	TransactionCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionPaid, TransactionRefunded, TransactionCancelled:
		return true
	}
	return false
}

// Transaction is a billing record. Amounts are kept in minor units.
type Transaction struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PatientID     primitive.ObjectID  `bson:"patientId" json:"patientId"`
	AppointmentID *primitive.ObjectID `bson:"appointmentId,omitempty" json:"appointmentId,omitempty"`
	AmountCents   int64               `bson:"amountCents" json:"amountCents"`
	Currency      string              `bson:"currency" json:"currency"`
	Description   string              `bson:"description" json:"description"`
	Method        string              `bson:"method,omitempty" json:"method,omitempty"`
	Status        TransactionStatus   `bson:"status" json:"status"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type TransactionFilter struct {
	PatientID primitive.ObjectID
	Status    TransactionStatus
}
