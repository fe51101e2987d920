package registry

import (
	"context"
	"fmt"
	"time"
)

// Repository stores students, courses and grade records. Lookups return the
// first match in insertion order and all reads hand out copies.
type Repository interface {
	CreateStudent(ctx context.Context, input StudentInput) (*Student, error)
	GetStudentByID(ctx context.Context, id int) (*Student, error)
	GetAllStudents(ctx context.Context) ([]Student, error)
	GetStudentsByFaculty(ctx context.Context, faculty Faculty) ([]Student, error)
	UpdateStudentStatus(ctx context.Context, id int, status StudentStatus) error

	CreateCourse(ctx context.Context, input CourseInput) (*Course, error)
	GetCourseByID(ctx context.Context, id int) (*Course, error)
	GetAllCourses(ctx context.Context) ([]Course, error)
	GetCoursesByFacultyAndSemester(ctx context.Context, faculty Faculty, semester Semester) ([]Course, error)

	CreateGradeRecord(ctx context.Context, record GradeRecord) error
	GetGradeRecord(ctx context.Context, studentID, courseID int) (*GradeRecord, error)
	GetGradeRecordsByStudent(ctx context.Context, studentID int) ([]GradeRecord, error)
	CountGradeRecordsByCourse(ctx context.Context, courseID int) (int, error)
	CountGradeRecords(ctx context.Context) (total, graded int, err error)
	UpdateGrade(ctx context.Context, studentID, courseID int, grade Grade, date time.Time) error
}

type memoryRepository struct {
	students []Student
	courses  []Course
	records  []GradeRecord

	lastStudentID int
	lastCourseID  int
}

// NewMemoryRepository returns an empty in-memory Repository. It is not safe
// for concurrent use; the service serializes access.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) CreateStudent(_ context.Context, input StudentInput) (*Student, error) {
	r.lastStudentID++
	student := Student{
		ID:             r.lastStudentID,
		FullName:       input.FullName,
		Faculty:        input.Faculty,
		Year:           input.Year,
		Status:         input.Status,
		EnrollmentDate: input.EnrollmentDate,
		Group:          input.Group,
	}
	r.students = append(r.students, student)
	return &student, nil
}

func (r *memoryRepository) GetStudentByID(_ context.Context, id int) (*Student, error) {
	i := r.studentIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: id %d", ErrStudentNotFound, id)
	}
	student := r.students[i]
	return &student, nil
}

func (r *memoryRepository) GetAllStudents(_ context.Context) ([]Student, error) {
	students := make([]Student, len(r.students))
	copy(students, r.students)
	return students, nil
}

func (r *memoryRepository) GetStudentsByFaculty(_ context.Context, faculty Faculty) ([]Student, error) {
	students := []Student{}
	for _, s := range r.students {
		if s.Faculty == faculty {
			students = append(students, s)
		}
	}
	return students, nil
}

func (r *memoryRepository) UpdateStudentStatus(_ context.Context, id int, status StudentStatus) error {
	i := r.studentIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrStudentNotFound, id)
	}
	r.students[i].Status = status
	return nil
}

func (r *memoryRepository) CreateCourse(_ context.Context, input CourseInput) (*Course, error) {
	r.lastCourseID++
	course := Course{
		ID:          r.lastCourseID,
		Name:        input.Name,
		Type:        input.Type,
		Credits:     input.Credits,
		Semester:    input.Semester,
		Faculty:     input.Faculty,
		MaxStudents: input.MaxStudents,
	}
	r.courses = append(r.courses, course)
	return &course, nil
}

func (r *memoryRepository) GetCourseByID(_ context.Context, id int) (*Course, error) {
	for _, c := range r.courses {
		if c.ID == id {
			course := c
			return &course, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrCourseNotFound, id)
}

func (r *memoryRepository) GetAllCourses(_ context.Context) ([]Course, error) {
	courses := make([]Course, len(r.courses))
	copy(courses, r.courses)
	return courses, nil
}

func (r *memoryRepository) GetCoursesByFacultyAndSemester(_ context.Context, faculty Faculty, semester Semester) ([]Course, error) {
	courses := []Course{}
	for _, c := range r.courses {
		if c.Faculty == faculty && c.Semester == semester {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (r *memoryRepository) CreateGradeRecord(_ context.Context, record GradeRecord) error {
	r.records = append(r.records, cloneRecord(record))
	return nil
}

func (r *memoryRepository) GetGradeRecord(_ context.Context, studentID, courseID int) (*GradeRecord, error) {
	i := r.recordIndex(studentID, courseID)
	if i < 0 {
		return nil, fmt.Errorf("%w: student %d, course %d", ErrGradeRecordNotFound, studentID, courseID)
	}
	record := cloneRecord(r.records[i])
	return &record, nil
}

func (r *memoryRepository) GetGradeRecordsByStudent(_ context.Context, studentID int) ([]GradeRecord, error) {
	records := []GradeRecord{}
	for _, rec := range r.records {
		if rec.StudentID == studentID {
			records = append(records, cloneRecord(rec))
		}
	}
	return records, nil
}

func (r *memoryRepository) CountGradeRecordsByCourse(_ context.Context, courseID int) (int, error) {
	count := 0
	for _, rec := range r.records {
		if rec.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) CountGradeRecords(_ context.Context) (int, int, error) {
	graded := 0
	for _, rec := range r.records {
		if rec.Graded() {
			graded++
		}
	}
	return len(r.records), graded, nil
}

func (r *memoryRepository) UpdateGrade(_ context.Context, studentID, courseID int, grade Grade, date time.Time) error {
	i := r.recordIndex(studentID, courseID)
	if i < 0 {
		return fmt.Errorf("%w: student %d, course %d", ErrGradeRecordNotFound, studentID, courseID)
	}
	r.records[i].Grade = &grade
	r.records[i].Date = date
	return nil
}

func (r *memoryRepository) studentIndex(id int) int {
	for i, s := range r.students {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *memoryRepository) recordIndex(studentID, courseID int) int {
	for i, rec := range r.records {
		if rec.StudentID == studentID && rec.CourseID == courseID {
			return i
		}
	}
	return -1
}

// cloneRecord detaches the grade pointer so callers cannot reach stored state.
func cloneRecord(rec GradeRecord) GradeRecord {
	if rec.Grade != nil {
		g := *rec.Grade
		rec.Grade = &g
	}
	return rec
}
