package submission

import (
	"time"

	"github.com/google/uuid"
)

// State is the submission lifecycle state. in_progress moves to done when
// a doctor claims the submission; done is terminal.
type State string

const (
	StateInProgress State = "in_progress"
	StateDone       State = "done"
)

func (s State) IsValid() bool {
	switch s {
	case StateInProgress, StateDone:
		return true
	}
	return false
}

type Submission struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	// PatientID is immutable after creation.
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	// DoctorID is null until a doctor claims the submission and is set
	// exactly once, by the claiming doctor.
	DoctorID *uuid.UUID `gorm:"column:doctor_id;type:uuid;index"`

	State State `gorm:"column:state;type:varchar(20);not null;default:'in_progress';index"`

	Title     string `gorm:"column:title;type:varchar(255);not null"`
	Symptoms  string `gorm:"column:symptoms;type:text;not null"`
	OtherInfo string `gorm:"column:other_info;type:text"`

	// Prescription holds the object-storage key of the attached file,
	// never the file content.
	Prescription *string `gorm:"column:prescriptions;type:varchar(64)"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) IsClaimedBy(doctorID uuid.UUID) bool {
	return s.DoctorID != nil && *s.DoctorID == doctorID
}

func (s *Submission) HasPrescription() bool {
	return s.Prescription != nil && *s.Prescription != ""
}

type CreateSubmissionCommand struct {
	Title     string
	Symptoms  string
	OtherInfo string
}

type ListSubmissionsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	State     *State
	Unclaimed bool
	Page      int
	PageSize  int
}

type PagedSubmissions struct {
	Submissions []*Submission
	TotalCount  int64
	Page        int
	PageSize    int
	TotalPages  int
}
