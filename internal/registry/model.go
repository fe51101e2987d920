package registry

import (
	"fmt"
	"strconv"
	"time"
)

// Faculty is the organizational unit a student or course belongs to.
type Faculty string

const (
	FacultyComputerScience Faculty = "Computer_Science"
	FacultyEconomics       Faculty = "Economics"
	FacultyLaw             Faculty = "Law"
	FacultyEngineering     Faculty = "Engineering"
)

func (f Faculty) Valid() bool {
	switch f {
	case FacultyComputerScience, FacultyEconomics, FacultyLaw, FacultyEngineering:
		return true
	default:
		return false
	}
}

func ParseFaculty(s string) (Faculty, error) {
	f := Faculty(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: unknown faculty %q", ErrInvalidInput, s)
	}
	return f, nil
}

type StudentStatus string

const (
	StatusActive        StudentStatus = "Active"
	StatusAcademicLeave StudentStatus = "Academic_Leave"
	StatusGraduated     StudentStatus = "Graduated"
	StatusExpelled      StudentStatus = "Expelled"
)

func (s StudentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusAcademicLeave, StatusGraduated, StatusExpelled:
		return true
	default:
		return false
	}
}

func ParseStudentStatus(s string) (StudentStatus, error) {
	st := StudentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown student status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// CanTransitionTo reports whether a student in status s may move to next.
// Expelled students can only be put on academic leave; every other move is allowed.
func (s StudentStatus) CanTransitionTo(next StudentStatus) bool {
	switch s {
	case StatusExpelled:
		return next == StatusAcademicLeave
	case StatusActive, StatusAcademicLeave, StatusGraduated:
		return true
	default:
		return true
	}
}

type CourseType string

const (
	CourseMandatory CourseType = "Mandatory"
	CourseOptional  CourseType = "Optional"
	CourseSpecial   CourseType = "Special"
)

func (t CourseType) Valid() bool {
	switch t {
	case CourseMandatory, CourseOptional, CourseSpecial:
		return true
	default:
		return false
	}
}

type Semester string

const (
	SemesterFirst  Semester = "First"
	SemesterSecond Semester = "Second"
)

func (s Semester) Valid() bool {
	switch s {
	case SemesterFirst, SemesterSecond:
		return true
	default:
		return false
	}
}

func ParseSemester(s string) (Semester, error) {
	sem := Semester(s)
	if !sem.Valid() {
		return "", fmt.Errorf("%w: unknown semester %q", ErrInvalidInput, s)
	}
	return sem, nil
}

// Grade is the discrete grading scale. The numeric value is what averages are computed over.
type Grade int

const (
	GradeUnsatisfactory Grade = 2
	GradeSatisfactory   Grade = 3
	GradeGood           Grade = 4
	GradeExcellent      Grade = 5
)

func (g Grade) Valid() bool {
	switch g {
	case GradeExcellent, GradeGood, GradeSatisfactory, GradeUnsatisfactory:
		return true
	default:
		return false
	}
}

func (g Grade) String() string {
	switch g {
	case GradeExcellent:
		return "Excellent"
	case GradeGood:
		return "Good"
	case GradeSatisfactory:
		return "Satisfactory"
	case GradeUnsatisfactory:
		return "Unsatisfactory"
	default:
		return "Grade(" + strconv.Itoa(int(g)) + ")"
	}
}

// TopStudentThreshold is the minimum average grade of a top student.
const TopStudentThreshold = float64(GradeExcellent - 1)

type Student struct {
	ID             int           `json:"id"`
	FullName       string        `json:"fullName"`
	Faculty        Faculty       `json:"faculty"`
	Year           int           `json:"year"`
	Status         StudentStatus `json:"status"`
	EnrollmentDate time.Time     `json:"enrollmentDate"`
	Group          string        `json:"group"`
}

// StudentInput carries everything needed to enroll a student except the id,
// which the registry assigns.
type StudentInput struct {
	FullName       string        `json:"fullName" validate:"required"`
	Faculty        Faculty       `json:"faculty" validate:"required,faculty"`
	Year           int           `json:"year" validate:"min=1"`
	Status         StudentStatus `json:"status" validate:"required,student_status"`
	EnrollmentDate time.Time     `json:"enrollmentDate"`
	Group          string        `json:"group"`
}

type Course struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Type        CourseType `json:"type"`
	Credits     int        `json:"credits"`
	Semester    Semester   `json:"semester"`
	Faculty     Faculty    `json:"faculty"`
	MaxStudents int        `json:"maxStudents"`
}

type CourseInput struct {
	Name        string     `json:"name" validate:"required"`
	Type        CourseType `json:"type" validate:"required,course_type"`
	Credits     int        `json:"credits" validate:"min=0"`
	Semester    Semester   `json:"semester" validate:"required,semester"`
	Faculty     Faculty    `json:"faculty" validate:"required,faculty"`
	MaxStudents int        `json:"maxStudents" validate:"min=0"`
}

// GradeRecord is one student's registration in one course. Grade stays nil
// until the course is graded.
type GradeRecord struct {
	StudentID int       `json:"studentId"`
	CourseID  int       `json:"courseId"`
	Grade     *Grade    `json:"grade"`
	Date      time.Time `json:"date"`
	Semester  Semester  `json:"semester"`
}

func (r GradeRecord) Graded() bool {
	return r.Grade != nil
}
