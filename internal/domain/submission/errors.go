package submission

import "errors"

var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrAlreadyClaimed       = errors.New("submission is already claimed by another doctor")
	ErrPrescriptionNotFound = errors.New("submission has no prescription attached")
)
