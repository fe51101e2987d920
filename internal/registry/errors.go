package registry

import "errors"

var (
	ErrInvalidReference  = errors.New("invalid reference")
	ErrFacultyMismatch   = errors.New("student and course faculties differ")
	ErrCourseFull        = errors.New("course is full")
	ErrNotRegistered     = errors.New("student is not registered for course")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAlreadyRegistered = errors.New("student is already registered for course")
	ErrInvalidInput      = errors.New("invalid input")
)

// Repository errors
var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrGradeRecordNotFound = errors.New("grade record not found")
)
