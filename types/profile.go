package types

import "time"

// StudentProfile is the role extension row for a student. Its existence
// is the authoritative "enrolled/approved" flag.
type StudentProfile struct {
	AccountID     string    `json:"account_id" db:"account_id"`
	StudentID     string    `json:"student_id" db:"student_id"`
	Semester      int       `json:"semester" db:"semester"`
	Batch         string    `json:"batch" db:"batch"`
	GuardianName  string    `json:"guardian_name,omitempty" db:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone,omitempty" db:"guardian_phone"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// FacultyProfile is the role extension row for faculty and HOD accounts.
type FacultyProfile struct {
	AccountID       string    `json:"account_id" db:"account_id"`
	EmployeeID      string    `json:"employee_id" db:"employee_id"`
	Designation     string    `json:"designation" db:"designation"`
	Qualification   string    `json:"qualification" db:"qualification"`
	ExperienceYears int       `json:"experience_years,omitempty" db:"experience_years"`
	Specialization  string    `json:"specialization,omitempty" db:"specialization"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ProfileFields is the role-discriminated profile submission. Exactly
// two variants exist: StudentFields and FacultyFields. Code reading or
// writing profile data switches on the concrete type so a field can
// never be consulted for the wrong role.
type ProfileFields interface {
	// Role returns the variant's role tag.
	Role() Role

	// Validate checks required fields and returns a *ValidationError
	// naming the first missing one.
	Validate() error

	sealed()
}

// StudentFields carries a student's profile submission.
type StudentFields struct {
	FullName      string `json:"full_name"`
	Department    string `json:"department"`
	StudentID     string `json:"student_id"`
	Semester      int    `json:"semester"`
	Batch         string `json:"batch"`
	GuardianName  string `json:"guardian_name,omitempty"`
	GuardianPhone string `json:"guardian_phone,omitempty"`
}

func (StudentFields) Role() Role { return RoleStudent }
func (StudentFields) sealed()    {}

func (f StudentFields) Validate() error {
	switch {
	case f.FullName == "":
		return &ValidationError{Field: "full_name", Reason: "full name is required"}
	case f.Department == "":
		return &ValidationError{Field: "department", Reason: "department is required"}
	case f.StudentID == "":
		return &ValidationError{Field: "student_id", Reason: "student ID is required"}
	case f.Semester < 1 || f.Semester > 12:
		return &ValidationError{Field: "semester", Reason: "semester must be between 1 and 12"}
	case f.Batch == "":
		return &ValidationError{Field: "batch", Reason: "batch is required"}
	}
	return nil
}

// FacultyFields carries a faculty or HOD profile submission.
type FacultyFields struct {
	FullName        string `json:"full_name"`
	Department      string `json:"department"`
	EmployeeID      string `json:"employee_id"`
	Designation     string `json:"designation"`
	Qualification   string `json:"qualification"`
	ExperienceYears int    `json:"experience_years,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
}

func (FacultyFields) Role() Role { return RoleFaculty }
func (FacultyFields) sealed()    {}

func (f FacultyFields) Validate() error {
	switch {
	case f.FullName == "":
		return &ValidationError{Field: "full_name", Reason: "full name is required"}
	case f.Department == "":
		return &ValidationError{Field: "department", Reason: "department is required"}
	case f.EmployeeID == "":
		return &ValidationError{Field: "employee_id", Reason: "employee ID is required"}
	case f.Designation == "":
		return &ValidationError{Field: "designation", Reason: "designation is required"}
	case f.Qualification == "":
		return &ValidationError{Field: "qualification", Reason: "qualification is required"}
	case f.ExperienceYears < 0:
		return &ValidationError{Field: "experience_years", Reason: "experience years cannot be negative"}
	}
	return nil
}
