package models

// Enrollment is a student's registration in a unit joined with the student's identity fields.
// Active is false once the student has withdrawn; such rows still take part in roster matching.
type Enrollment struct {
	ID          string   `db:"id" json:"id"`
	UnitID      string   `db:"unit_id" json:"unit_id"`
	UserID      string   `db:"user_id" json:"user_id"`
	StudentID   string   `db:"student_id" json:"student_id"`
	Username    string   `db:"username" json:"username"`
	Email       string   `db:"email" json:"email"`
	DisplayName string   `db:"display_name" json:"display_name"`
	Grade       *float64 `db:"grade" json:"grade,omitempty"`
	Active      bool     `db:"active" json:"active"`
}

// HasPostableGrade reports whether the grade is present and positive.
func (e Enrollment) HasPostableGrade() bool {
	return e.Grade != nil && *e.Grade > 0
}
