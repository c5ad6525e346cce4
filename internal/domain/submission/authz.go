package submission

import (
	"github.com/google/uuid"

	"github.com/pablosanchi/consultation-backend/internal/domain"
)

// Authorization predicates. Each one is a pure, total function over the
// acting identity and the target submission; services must evaluate the
// relevant predicate before executing any mutation.

// CanComplete reports whether the actor may claim and complete the
// submission. Any doctor may claim an unclaimed in-progress submission;
// a submission already claimed by another doctor is off limits.
func CanComplete(actor domain.Actor, s *Submission) bool {
	return actor.IsDoctor && s.State == StateInProgress && s.DoctorID == nil
}

// CanUploadPrescription reports whether the actor may attach a
// prescription. Only the doctor already assigned to the submission may
// upload, so an upload always requires a prior claim.
func CanUploadPrescription(actor domain.Actor, s *Submission) bool {
	return s.IsClaimedBy(actor.ID)
}

// CanDeletePrescription reports whether the actor may remove the attached
// prescription. Only the owning doctor, and only while one is attached.
func CanDeletePrescription(actor domain.Actor, s *Submission) bool {
	return s.IsClaimedBy(actor.ID) && s.HasPrescription()
}

// CanViewPrescription reports whether the actor may fetch the
// prescription. Visible to the submission's patient and doctor once the
// submission is done, and to nobody before that.
func CanViewPrescription(actor domain.Actor, s *Submission) bool {
	if s.State != StateDone {
		return false
	}
	return actor.ID == s.PatientID || s.IsClaimedBy(actor.ID)
}

// CanViewDoctorInformation reports whether the actor may read a doctor's
// profile: the doctor themselves, or a patient that has been matched with
// the doctor through at least one submission.
func CanViewDoctorInformation(actor domain.Actor, doctorID uuid.UUID, matched bool) bool {
	return actor.ID == doctorID || matched
}
