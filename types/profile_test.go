package types

import (
	"errors"
	"testing"
)

func TestStudentFieldsValidate(t *testing.T) {
	valid := StudentFields{
		FullName:   "Alice Iyer",
		Department: "CSE",
		StudentID:  "CSE-042",
		Semester:   3,
		Batch:      "2024",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid fields rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*StudentFields)
		field  string
	}{
		{"missing full name", func(f *StudentFields) { f.FullName = "" }, "full_name"},
		{"missing department", func(f *StudentFields) { f.Department = "" }, "department"},
		{"missing student id", func(f *StudentFields) { f.StudentID = "" }, "student_id"},
		{"semester too low", func(f *StudentFields) { f.Semester = 0 }, "semester"},
		{"semester too high", func(f *StudentFields) { f.Semester = 13 }, "semester"},
		{"missing batch", func(f *StudentFields) { f.Batch = "" }, "batch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := valid
			tt.mutate(&fields)
			var verr *ValidationError
			if err := fields.Validate(); !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			} else if verr.Field != tt.field {
				t.Fatalf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestFacultyFieldsValidate(t *testing.T) {
	valid := FacultyFields{
		FullName:      "Bob Rao",
		Department:    "CSE",
		EmployeeID:    "E-17",
		Designation:   "Professor",
		Qualification: "PhD",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid fields rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*FacultyFields)
		field  string
	}{
		{"missing full name", func(f *FacultyFields) { f.FullName = "" }, "full_name"},
		{"missing department", func(f *FacultyFields) { f.Department = "" }, "department"},
		{"missing employee id", func(f *FacultyFields) { f.EmployeeID = "" }, "employee_id"},
		{"missing designation", func(f *FacultyFields) { f.Designation = "" }, "designation"},
		{"missing qualification", func(f *FacultyFields) { f.Qualification = "" }, "qualification"},
		{"negative experience", func(f *FacultyFields) { f.ExperienceYears = -1 }, "experience_years"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := valid
			tt.mutate(&fields)
			var verr *ValidationError
			if err := fields.Validate(); !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			} else if verr.Field != tt.field {
				t.Fatalf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestProfileFieldsRoleTags(t *testing.T) {
	var fields ProfileFields = StudentFields{}
	if fields.Role() != RoleStudent {
		t.Fatalf("StudentFields role = %q", fields.Role())
	}
	fields = FacultyFields{}
	if fields.Role() != RoleFaculty {
		t.Fatalf("FacultyFields role = %q", fields.Role())
	}
}

func TestAccountProfileComplete(t *testing.T) {
	var account Account
	if account.ProfileComplete() {
		t.Fatal("empty account reported complete")
	}

	empty := ""
	account.FullName = &empty
	if account.ProfileComplete() {
		t.Fatal("blank name reported complete")
	}

	name := "Alice Iyer"
	account.FullName = &name
	if !account.ProfileComplete() {
		t.Fatal("named account reported incomplete")
	}
}
