package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the role-specific record linked one-to-one with an Account.
type Profile interface {
	ProfileID() primitive.ObjectID
	AccountID() primitive.ObjectID
	ProfileRole() Role
}

type StaffProfile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Account   primitive.ObjectID `bson:"account" json:"account"`
	FullName  string             `bson:"fullName" json:"fullName"`
	Gender    string             `bson:"gender" json:"gender"`
	Position  string             `bson:"position,omitempty" json:"position,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

func (p *StaffProfile) ProfileID() primitive.ObjectID { return p.ID }
func (p *StaffProfile) AccountID() primitive.ObjectID { return p.Account }
func (p *StaffProfile) ProfileRole() Role             { return RoleStaff }

type DoctorProfile struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Account        primitive.ObjectID `bson:"account" json:"account"`
	FullName       string             `bson:"fullName" json:"fullName"`
	LicenseNumber  string             `bson:"licenseNumber" json:"licenseNumber"`
	Specialization string             `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

func (p *DoctorProfile) ProfileID() primitive.ObjectID { return p.ID }
func (p *DoctorProfile) AccountID() primitive.ObjectID { return p.Account }
func (p *DoctorProfile) ProfileRole() Role             { return RoleDoctor }

type PatientProfile struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Account     primitive.ObjectID   `bson:"account" json:"account"`
	FullName    string               `bson:"fullName" json:"fullName"`
	Gender      string               `bson:"gender" json:"gender"`
	DateOfBirth *time.Time           `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Phone       string               `bson:"phone,omitempty" json:"phone,omitempty"` // Used for SMS notifications
	Address     string               `bson:"address,omitempty" json:"address,omitempty"`
	Doctors     []primitive.ObjectID `bson:"doctors" json:"doctors"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
}

func (p *PatientProfile) ProfileID() primitive.ObjectID { return p.ID }
func (p *PatientProfile) AccountID() primitive.ObjectID { return p.Account }
func (p *PatientProfile) ProfileRole() Role             { return RolePatient }

// HasDoctor reports whether doctorID is linked to the patient.
func (p *PatientProfile) HasDoctor(doctorID primitive.ObjectID) bool {
	for _, id := range p.Doctors {
		if id == doctorID {
			return true
		}
	}
	return false
}
