package models

// EnrollmentStatus represents the lifecycle of a class enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusLeft        EnrollmentStatus = "LEFT"
)

// BillingStudent is the read-only view of a student the billing services work with:
// identity plus the enrollment attributes that decide which fees and reductions apply.
type BillingStudent struct {
	ID                 string  `db:"id" json:"id"`
	NIS                string  `db:"nis" json:"nis"`
	FullName           string  `db:"full_name" json:"full_name"`
	ClassID            *string `db:"class_id" json:"class_id,omitempty"`
	ClassName          *string `db:"class_name" json:"class_name,omitempty"`
	ScholarshipEnabled bool    `db:"scholarship_enabled" json:"scholarship_enabled"`
	SchoolYearID       string  `db:"school_year_id" json:"school_year_id"`
}

// HasClass reports whether the student is enrolled in a class.
func (s *BillingStudent) HasClass() bool {
	return s != nil && s.ClassID != nil && *s.ClassID != ""
}

// Class returns the class id or an empty string.
func (s *BillingStudent) Class() string {
	if !s.HasClass() {
		return ""
	}
	return *s.ClassID
}
