package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor:
		return true
	}
	return false
}

// A user may hold the patient profile, the doctor profile, or both.
// Role is an attribute set, not a hierarchy.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Name         string `gorm:"column:name;type:varchar(100);not null"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`

	IsPatient bool `gorm:"column:is_patient;default:false;index"`
	IsDoctor  bool `gorm:"column:is_doctor;default:false;index"`

	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`

	PatientInformation *PatientInformation `gorm:"foreignKey:UserID"`
	DoctorInformation  *DoctorInformation  `gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, IsPatient: u.IsPatient, IsDoctor: u.IsDoctor}
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type PatientInformation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`

	Gender             Gender    `gorm:"column:gender;type:varchar(20);not null"`
	Height             int       `gorm:"column:height;not null"` // cm
	Weight             int       `gorm:"column:weight;not null"` // kg
	BirthDate          time.Time `gorm:"column:birth_date;not null"`
	Diseases           string    `gorm:"column:diseases;type:text"`
	PreviousTreatments string    `gorm:"column:previous_treatments;type:text"`
}

func (PatientInformation) TableName() string {
	return "patient_information"
}

const (
	DoctorGradeMin = 1
	DoctorGradeMax = 5
)

type DoctorInformation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`

	Grade      int    `gorm:"column:grade;not null"`
	Speciality string `gorm:"column:speciality;type:varchar(255);not null"`
}

func (DoctorInformation) TableName() string {
	return "doctor_information"
}

// Actor is the authenticated identity evaluated by the authorization
// predicates. It is built once per request from the JWT claims and
// threaded explicitly into every service call.
type Actor struct {
	ID        uuid.UUID
	IsPatient bool
	IsDoctor  bool
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID    uuid.UUID `json:"sub"`
	Email     string    `json:"email"`
	IsPatient bool      `json:"is_patient"`
	IsDoctor  bool      `json:"is_doctor"`
}

func (c *Claims) Actor() Actor {
	return Actor{ID: c.UserID, IsPatient: c.IsPatient, IsDoctor: c.IsDoctor}
}

type EventType string

const (
	EventUserRegistered       EventType = "user.registered"
	EventPrescriptionUploaded EventType = "prescription.uploaded"
)

type OutboxStatus string

const (
	OutboxStatusReady     OutboxStatus = "ready"
	OutboxStatusPublished OutboxStatus = "published"
)

// OutboxEvent is a post-commit notification record. The request path only
// inserts rows; a background dispatcher publishes them to the broker, so a
// broker outage never affects the transactional outcome.
type OutboxEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	Type    EventType      `gorm:"column:type;type:varchar(50);not null"`
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	Status  OutboxStatus   `gorm:"column:status;type:varchar(20);not null;default:'ready';index"`

	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
