package models

// EnrollmentStatus represents the lifecycle of a student's enrollment in a classroom. Only ACTIVE
// enrollments receive pending scores and appear in rankings.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusLeft        EnrollmentStatus = "LEFT"
)
