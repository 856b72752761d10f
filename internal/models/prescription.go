package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Medication struct {
	Name      string `bson:"name" json:"name" binding:"required"`
	Dosage    string `bson:"dosage" json:"dosage" binding:"required"`
	Frequency string `bson:"frequency" json:"frequency"`
	Duration  string `bson:"duration" json:"duration"`
}

type Prescription struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PatientID     primitive.ObjectID  `bson:"patientId" json:"patientId"`
	DoctorID      primitive.ObjectID  `bson:"doctorId" json:"doctorId"`
	AppointmentID *primitive.ObjectID `bson:"appointmentId,omitempty" json:"appointmentId,omitempty"`
	Medications   []Medication        `bson:"medications" json:"medications"`
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
	IssuedAt      time.Time           `bson:"issuedAt" json:"issuedAt"`
}

type PrescriptionFilter struct {
	PatientID primitive.ObjectID
	DoctorID  primitive.ObjectID
}
