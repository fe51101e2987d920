package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"student-registry/internal/metrics"
)

type Service interface {
	EnrollStudent(ctx context.Context, input StudentInput) (*Student, error)
	AddCourse(ctx context.Context, input CourseInput) (*Course, error)
	RegisterForCourse(ctx context.Context, studentID, courseID int) error
	SetGrade(ctx context.Context, studentID, courseID int, grade Grade) error
	UpdateStudentStatus(ctx context.Context, studentID int, status StudentStatus) error

	GetStudent(ctx context.Context, id int) (*Student, error)
	GetCourse(ctx context.Context, id int) (*Course, error)
	ListStudents(ctx context.Context) ([]Student, error)
	ListCourses(ctx context.Context) ([]Course, error)
	GetStudentsByFaculty(ctx context.Context, faculty Faculty) ([]Student, error)
	GetStudentGrades(ctx context.Context, studentID int) ([]GradeRecord, error)
	GetAvailableCourses(ctx context.Context, faculty Faculty, semester Semester) ([]Course, error)
	CalculateAverageGrade(ctx context.Context, studentID int) (float64, error)
	GetTopStudentsByFaculty(ctx context.Context, faculty Faculty) ([]Student, error)
	Stats(ctx context.Context) (Stats, error)
}

// Stats counts what the registry currently holds.
type Stats struct {
	Students      int `json:"students"`
	Courses       int `json:"courses"`
	Registrations int `json:"registrations"`
	Graded        int `json:"graded"`
}

type Option func(*service)

// WithClock replaces time.Now as the source of record dates.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithPublisher makes the service emit an Event after every successful mutation.
func WithPublisher(p Publisher) Option {
	return func(s *service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

type service struct {
	mu        sync.Mutex
	repo      Repository
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) EnrollStudent(ctx context.Context, input StudentInput) (*Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.repo.CreateStudent(ctx, input)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStudentEnrolled(ctx, string(student.Faculty))

	event := newEvent(EventStudentEnrolled, s.now())
	event.StudentID = student.ID
	event.Faculty = student.Faculty
	event.Status = student.Status
	s.publish(ctx, event)

	return student, nil
}

func (s *service) AddCourse(ctx context.Context, input CourseInput) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, err := s.repo.CreateCourse(ctx, input)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCourseAdded(ctx, string(course.Faculty))

	event := newEvent(EventCourseAdded, s.now())
	event.CourseID = course.ID
	event.Faculty = course.Faculty
	s.publish(ctx, event)

	return course, nil
}

func (s *service) RegisterForCourse(ctx context.Context, studentID, courseID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, err := s.checkRegistration(ctx, studentID, courseID)
	if err != nil {
		s.metrics.RecordRegistrationRejected(ctx, rejectionReason(err))
		return err
	}

	now := s.now()
	record := GradeRecord{
		StudentID: studentID,
		CourseID:  courseID,
		Date:      now,
		Semester:  course.Semester,
	}
	if err := s.repo.CreateGradeRecord(ctx, record); err != nil {
		return err
	}

	s.metrics.RecordRegistration(ctx)

	event := newEvent(EventCourseRegistered, now)
	event.StudentID = studentID
	event.CourseID = courseID
	event.Faculty = course.Faculty
	s.publish(ctx, event)

	return nil
}

// checkRegistration runs every registration rule without mutating anything
// and returns the target course.
func (s *service) checkRegistration(ctx context.Context, studentID, courseID int) (*Course, error) {
	course, err := s.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, referenceError(err)
	}
	student, err := s.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, referenceError(err)
	}

	if student.Faculty != course.Faculty {
		return nil, fmt.Errorf("%w: student %d is in %s, course %d is in %s",
			ErrFacultyMismatch, student.ID, student.Faculty, course.ID, course.Faculty)
	}

	if _, err := s.repo.GetGradeRecord(ctx, studentID, courseID); err == nil {
		return nil, fmt.Errorf("%w: student %d, course %d", ErrAlreadyRegistered, studentID, courseID)
	} else if !errors.Is(err, ErrGradeRecordNotFound) {
		return nil, err
	}

	registered, err := s.repo.CountGradeRecordsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if registered >= course.MaxStudents {
		return nil, fmt.Errorf("%w: course %d has %d of %d places taken",
			ErrCourseFull, course.ID, registered, course.MaxStudents)
	}

	return course, nil
}

func (s *service) SetGrade(ctx context.Context, studentID, courseID int, grade Grade) error {
	if !grade.Valid() {
		return fmt.Errorf("%w: grade %d is not on the grading scale", ErrInvalidInput, int(grade))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if err := s.repo.UpdateGrade(ctx, studentID, courseID, grade, now); err != nil {
		if errors.Is(err, ErrGradeRecordNotFound) {
			return fmt.Errorf("%w: %w", ErrNotRegistered, err)
		}
		return err
	}

	s.metrics.RecordGradeAssigned(ctx, int(grade))

	event := newEvent(EventGradeAssigned, now)
	event.StudentID = studentID
	event.CourseID = courseID
	event.Grade = &grade
	s.publish(ctx, event)

	return nil
}

func (s *service) UpdateStudentStatus(ctx context.Context, studentID int, status StudentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown student status %q", ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return referenceError(err)
	}

	if !student.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: student %d cannot move from %s to %s",
			ErrIllegalTransition, student.ID, student.Status, status)
	}

	if err := s.repo.UpdateStudentStatus(ctx, studentID, status); err != nil {
		return referenceError(err)
	}

	s.metrics.RecordStatusChange(ctx, string(student.Status), string(status))

	event := newEvent(EventStudentStatusChanged, s.now())
	event.StudentID = studentID
	event.Faculty = student.Faculty
	event.Status = status
	s.publish(ctx, event)

	return nil
}

func (s *service) GetStudent(ctx context.Context, id int) (*Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.repo.GetStudentByID(ctx, id)
	if err != nil {
		return nil, referenceError(err)
	}
	return student, nil
}

func (s *service) GetCourse(ctx context.Context, id int) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, err := s.repo.GetCourseByID(ctx, id)
	if err != nil {
		return nil, referenceError(err)
	}
	return course, nil
}

func (s *service) ListStudents(ctx context.Context) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.GetAllStudents(ctx)
}

func (s *service) ListCourses(ctx context.Context) ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.GetAllCourses(ctx)
}

func (s *service) GetStudentsByFaculty(ctx context.Context, faculty Faculty) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.GetStudentsByFaculty(ctx, faculty)
}

func (s *service) GetStudentGrades(ctx context.Context, studentID int) ([]GradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.GetGradeRecordsByStudent(ctx, studentID)
}

func (s *service) GetAvailableCourses(ctx context.Context, faculty Faculty, semester Semester) ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.GetCoursesByFacultyAndSemester(ctx, faculty, semester)
}

func (s *service) CalculateAverageGrade(ctx context.Context, studentID int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.averageGrade(ctx, studentID)
}

func (s *service) GetTopStudentsByFaculty(ctx context.Context, faculty Faculty) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.repo.GetStudentsByFaculty(ctx, faculty)
	if err != nil {
		return nil, err
	}

	top := []Student{}
	for _, student := range students {
		avg, err := s.averageGrade(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		if avg >= TopStudentThreshold {
			top = append(top, student)
		}
	}
	return top, nil
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.repo.GetAllStudents(ctx)
	if err != nil {
		return Stats{}, err
	}
	courses, err := s.repo.GetAllCourses(ctx)
	if err != nil {
		return Stats{}, err
	}
	total, graded, err := s.repo.CountGradeRecords(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Students:      len(students),
		Courses:       len(courses),
		Registrations: total,
		Graded:        graded,
	}, nil
}

// averageGrade is the mean over graded records only; 0 when nothing is graded.
func (s *service) averageGrade(ctx context.Context, studentID int) (float64, error) {
	records, err := s.repo.GetGradeRecordsByStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}

	sum, graded := 0, 0
	for _, rec := range records {
		if rec.Grade == nil {
			continue
		}
		sum += int(*rec.Grade)
		graded++
	}
	if graded == 0 {
		return 0, nil
	}
	return float64(sum) / float64(graded), nil
}

func (s *service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.RecordEventPublishFailure(ctx, string(event.Type))
	}
}

func referenceError(err error) error {
	if errors.Is(err, ErrStudentNotFound) || errors.Is(err, ErrCourseNotFound) {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrFacultyMismatch):
		return "faculty_mismatch"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrCourseFull):
		return "course_full"
	default:
		return "internal"
	}
}
