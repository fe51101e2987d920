package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"student-registry/internal/metrics"
	"student-registry/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.September, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []registry.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event registry.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func newTestService(opts ...registry.Option) registry.Service {
	opts = append([]registry.Option{
		registry.WithClock(func() time.Time { return fixedNow }),
		registry.WithMetrics(metrics.NewMock()),
	}, opts...)
	return registry.NewService(registry.NewMemoryRepository(), opts...)
}

func enroll(t *testing.T, svc registry.Service, name string, faculty registry.Faculty) *registry.Student {
	t.Helper()
	student, err := svc.EnrollStudent(context.Background(), registry.StudentInput{
		FullName:       name,
		Faculty:        faculty,
		Year:           1,
		Status:         registry.StatusActive,
		EnrollmentDate: fixedNow,
		Group:          "G-101",
	})
	require.NoError(t, err)
	return student
}

func addCourse(t *testing.T, svc registry.Service, name string, faculty registry.Faculty, maxStudents int) *registry.Course {
	t.Helper()
	course, err := svc.AddCourse(context.Background(), registry.CourseInput{
		Name:        name,
		Type:        registry.CourseMandatory,
		Credits:     5,
		Semester:    registry.SemesterFirst,
		Faculty:     faculty,
		MaxStudents: maxStudents,
	})
	require.NoError(t, err)
	return course
}

func TestEnrollStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsSequentialIDs", func(t *testing.T) {
		svc := newTestService()

		for want := 1; want <= 5; want++ {
			student := enroll(t, svc, "Student", registry.FacultyLaw)
			assert.Equal(t, want, student.ID)
		}
	})

	t.Run("StoresInputVerbatim", func(t *testing.T) {
		svc := newTestService()

		input := registry.StudentInput{
			FullName:       "",
			Faculty:        registry.FacultyEngineering,
			Year:           -3,
			Status:         registry.StatusGraduated,
			EnrollmentDate: time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
			Group:          "E-7",
		}
		student, err := svc.EnrollStudent(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, 1, student.ID)
		assert.Equal(t, input.FullName, student.FullName)
		assert.Equal(t, input.Faculty, student.Faculty)
		assert.Equal(t, input.Year, student.Year)
		assert.Equal(t, input.Status, student.Status)
		assert.Equal(t, input.EnrollmentDate, student.EnrollmentDate)
		assert.Equal(t, input.Group, student.Group)

		stored, err := svc.GetStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, *student, *stored)
	})

	t.Run("ReturnedRecordIsDetached", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)

		student.Status = registry.StatusExpelled

		stored, err := svc.GetStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusActive, stored.Status)
	})
}

func TestAddCourse(t *testing.T) {
	svc := newTestService()

	first := addCourse(t, svc, "Databases", registry.FacultyComputerScience, 10)
	second := addCourse(t, svc, "Torts", registry.FacultyLaw, 10)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)

	// course ids are independent from student ids
	student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
	assert.Equal(t, 1, student.ID)
}

func TestRegisterForCourse(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 3)

		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))

		records, err := svc.GetStudentGrades(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, course.ID, records[0].CourseID)
		assert.Nil(t, records[0].Grade)
		assert.False(t, records[0].Graded())
		assert.Equal(t, fixedNow, records[0].Date)
		assert.Equal(t, course.Semester, records[0].Semester)
	})

	t.Run("UnknownStudent", func(t *testing.T) {
		svc := newTestService()
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 3)

		err := svc.RegisterForCourse(ctx, 42, course.ID)
		assert.ErrorIs(t, err, registry.ErrInvalidReference)
		assert.ErrorIs(t, err, registry.ErrStudentNotFound)
	})

	t.Run("UnknownCourse", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)

		err := svc.RegisterForCourse(ctx, student.ID, 42)
		assert.ErrorIs(t, err, registry.ErrInvalidReference)
		assert.ErrorIs(t, err, registry.ErrCourseNotFound)
	})

	t.Run("FacultyMismatch", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Contracts", registry.FacultyLaw, 10)

		err := svc.RegisterForCourse(ctx, student.ID, course.ID)
		assert.ErrorIs(t, err, registry.ErrFacultyMismatch)

		records, err := svc.GetStudentGrades(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("FacultyMismatchTakesPrecedenceOverCapacity", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Contracts", registry.FacultyLaw, 0)

		err := svc.RegisterForCourse(ctx, student.ID, course.ID)
		assert.ErrorIs(t, err, registry.ErrFacultyMismatch)
		assert.NotErrorIs(t, err, registry.ErrCourseFull)
	})

	t.Run("CapacityBoundary", func(t *testing.T) {
		svc := newTestService()
		const maxStudents = 3
		course := addCourse(t, svc, "Seminar", registry.FacultyEconomics, maxStudents)

		for i := 0; i < maxStudents; i++ {
			student := enroll(t, svc, "Student", registry.FacultyEconomics)
			require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID), "registration %d", i+1)
		}

		late := enroll(t, svc, "Late", registry.FacultyEconomics)
		err := svc.RegisterForCourse(ctx, late.ID, course.ID)
		assert.ErrorIs(t, err, registry.ErrCourseFull)

		records, err := svc.GetStudentGrades(ctx, late.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("ZeroCapacity", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyLaw)
		course := addCourse(t, svc, "Closed", registry.FacultyLaw, 0)

		assert.ErrorIs(t, svc.RegisterForCourse(ctx, student.ID, course.ID), registry.ErrCourseFull)
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)

		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))
		err := svc.RegisterForCourse(ctx, student.ID, course.ID)
		assert.ErrorIs(t, err, registry.ErrAlreadyRegistered)

		records, err := svc.GetStudentGrades(ctx, student.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)

		// the duplicate attempt did not consume a place
		other := enroll(t, svc, "Grace", registry.FacultyComputerScience)
		require.NoError(t, svc.RegisterForCourse(ctx, other.ID, course.ID))
	})
}

func TestSetGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresRegistration", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)

		err := svc.SetGrade(ctx, student.ID, course.ID, registry.GradeGood)
		assert.ErrorIs(t, err, registry.ErrNotRegistered)
	})

	t.Run("RequiresExactPair", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		registered := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
		other := addCourse(t, svc, "Networks", registry.FacultyComputerScience, 5)
		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, registered.ID))

		assert.ErrorIs(t, svc.SetGrade(ctx, student.ID, other.ID, registry.GradeGood), registry.ErrNotRegistered)
		assert.ErrorIs(t, svc.SetGrade(ctx, student.ID+1, registered.ID, registry.GradeGood), registry.ErrNotRegistered)
	})

	t.Run("OverwritesGradeAndDate", func(t *testing.T) {
		now := fixedNow
		svc := registry.NewService(registry.NewMemoryRepository(),
			registry.WithClock(func() time.Time { return now }))
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))

		now = fixedNow.Add(24 * time.Hour)
		require.NoError(t, svc.SetGrade(ctx, student.ID, course.ID, registry.GradeSatisfactory))

		now = fixedNow.Add(48 * time.Hour)
		require.NoError(t, svc.SetGrade(ctx, student.ID, course.ID, registry.GradeExcellent))

		records, err := svc.GetStudentGrades(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0].Grade)
		assert.Equal(t, registry.GradeExcellent, *records[0].Grade)
		assert.Equal(t, fixedNow.Add(48*time.Hour), records[0].Date)
	})

	t.Run("RejectsValueOffScale", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))

		err := svc.SetGrade(ctx, student.ID, course.ID, registry.Grade(7))
		assert.ErrorIs(t, err, registry.ErrInvalidInput)

		records, err := svc.GetStudentGrades(ctx, student.ID)
		require.NoError(t, err)
		assert.Nil(t, records[0].Grade)
	})
}

func TestUpdateStudentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownStudent", func(t *testing.T) {
		svc := newTestService()
		err := svc.UpdateStudentStatus(ctx, 1, registry.StatusGraduated)
		assert.ErrorIs(t, err, registry.ErrInvalidReference)
	})

	t.Run("ExpelledToAcademicLeave", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyLaw)
		require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusExpelled))

		require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusAcademicLeave))

		stored, err := svc.GetStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusAcademicLeave, stored.Status)
	})

	t.Run("ExpelledToAnythingElse", func(t *testing.T) {
		for _, next := range []registry.StudentStatus{registry.StatusActive, registry.StatusGraduated, registry.StatusExpelled} {
			t.Run(string(next), func(t *testing.T) {
				svc := newTestService()
				student := enroll(t, svc, "Ada", registry.FacultyLaw)
				require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusExpelled))

				err := svc.UpdateStudentStatus(ctx, student.ID, next)
				assert.ErrorIs(t, err, registry.ErrIllegalTransition)

				stored, err := svc.GetStudent(ctx, student.ID)
				require.NoError(t, err)
				assert.Equal(t, registry.StatusExpelled, stored.Status)
			})
		}
	})

	t.Run("PermissiveOtherwise", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyLaw)

		require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusGraduated))
		require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusActive))
		require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusActive))

		stored, err := svc.GetStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusActive, stored.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyLaw)

		err := svc.UpdateStudentStatus(ctx, student.ID, registry.StudentStatus("Suspended"))
		assert.ErrorIs(t, err, registry.ErrInvalidInput)
	})
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	ada := enroll(t, svc, "Ada", registry.FacultyComputerScience)
	enroll(t, svc, "Adam", registry.FacultyEconomics)
	grace := enroll(t, svc, "Grace", registry.FacultyComputerScience)

	compilers := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
	_, err := svc.AddCourse(ctx, registry.CourseInput{
		Name: "Graphics", Type: registry.CourseOptional, Semester: registry.SemesterSecond,
		Faculty: registry.FacultyComputerScience, MaxStudents: 5,
	})
	require.NoError(t, err)
	networks := addCourse(t, svc, "Networks", registry.FacultyComputerScience, 5)
	addCourse(t, svc, "Markets", registry.FacultyEconomics, 5)

	t.Run("StudentsByFaculty", func(t *testing.T) {
		students, err := svc.GetStudentsByFaculty(ctx, registry.FacultyComputerScience)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, ada.ID, students[0].ID)
		assert.Equal(t, grace.ID, students[1].ID)

		none, err := svc.GetStudentsByFaculty(ctx, registry.FacultyLaw)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("AvailableCourses", func(t *testing.T) {
		courses, err := svc.GetAvailableCourses(ctx, registry.FacultyComputerScience, registry.SemesterFirst)
		require.NoError(t, err)
		require.Len(t, courses, 2)
		assert.Equal(t, compilers.ID, courses[0].ID)
		assert.Equal(t, networks.ID, courses[1].ID)
	})

	t.Run("StudentGradesInInsertionOrder", func(t *testing.T) {
		require.NoError(t, svc.RegisterForCourse(ctx, ada.ID, networks.ID))
		require.NoError(t, svc.RegisterForCourse(ctx, ada.ID, compilers.ID))

		records, err := svc.GetStudentGrades(ctx, ada.ID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, networks.ID, records[0].CourseID)
		assert.Equal(t, compilers.ID, records[1].CourseID)
	})

	t.Run("ListAll", func(t *testing.T) {
		students, err := svc.ListStudents(ctx)
		require.NoError(t, err)
		assert.Len(t, students, 3)

		courses, err := svc.ListCourses(ctx)
		require.NoError(t, err)
		assert.Len(t, courses, 4)
	})
}

func TestCalculateAverageGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("ZeroWithoutGrades", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))

		avg, err := svc.CalculateAverageGrade(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, avg)

		unknown, err := svc.CalculateAverageGrade(ctx, 99)
		require.NoError(t, err)
		assert.Equal(t, 0.0, unknown)
	})

	t.Run("MeanIgnoresUngraded", func(t *testing.T) {
		svc := newTestService()
		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		c1 := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
		c2 := addCourse(t, svc, "Networks", registry.FacultyComputerScience, 5)
		c3 := addCourse(t, svc, "Graphics", registry.FacultyComputerScience, 5)
		for _, c := range []*registry.Course{c1, c2, c3} {
			require.NoError(t, svc.RegisterForCourse(ctx, student.ID, c.ID))
		}
		require.NoError(t, svc.SetGrade(ctx, student.ID, c1.ID, registry.GradeExcellent))
		require.NoError(t, svc.SetGrade(ctx, student.ID, c2.ID, registry.GradeGood))

		avg, err := svc.CalculateAverageGrade(ctx, student.ID)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, avg, 1e-9)
	})
}

func TestGetTopStudentsByFaculty(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 10)
	grade := func(name string, g *registry.Grade) *registry.Student {
		student := enroll(t, svc, name, registry.FacultyComputerScience)
		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))
		if g != nil {
			require.NoError(t, svc.SetGrade(ctx, student.ID, course.ID, *g))
		}
		return student
	}
	excellent, good, satisfactory := registry.GradeExcellent, registry.GradeGood, registry.GradeSatisfactory

	top := grade("Top", &excellent)
	edge := grade("Edge", &good)
	grade("Average", &satisfactory)
	grade("Ungraded", nil)
	enroll(t, svc, "Elsewhere", registry.FacultyLaw)

	students, err := svc.GetTopStudentsByFaculty(ctx, registry.FacultyComputerScience)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, top.ID, students[0].ID)
	assert.Equal(t, edge.ID, students[1].ID)

	law, err := svc.GetTopStudentsByFaculty(ctx, registry.FacultyLaw)
	require.NoError(t, err)
	assert.Empty(t, law)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	a := enroll(t, svc, "Student A", registry.FacultyComputerScience)
	b := enroll(t, svc, "Student B", registry.FacultyEconomics)
	c1 := addCourse(t, svc, "C1", registry.FacultyComputerScience, 2)
	c2 := addCourse(t, svc, "C2", registry.FacultyEconomics, 1)

	require.NoError(t, svc.RegisterForCourse(ctx, a.ID, c1.ID))
	require.NoError(t, svc.RegisterForCourse(ctx, b.ID, c2.ID))
	require.NoError(t, svc.SetGrade(ctx, a.ID, c1.ID, registry.GradeExcellent))
	require.NoError(t, svc.SetGrade(ctx, b.ID, c2.ID, registry.GradeGood))

	avgA, err := svc.CalculateAverageGrade(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, avgA)

	avgB, err := svc.CalculateAverageGrade(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avgB)

	cs, err := svc.GetTopStudentsByFaculty(ctx, registry.FacultyComputerScience)
	require.NoError(t, err)
	assert.Equal(t, []registry.Student{*a}, cs)

	econ, err := svc.GetTopStudentsByFaculty(ctx, registry.FacultyEconomics)
	require.NoError(t, err)
	assert.Equal(t, []registry.Student{*b}, econ)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishedAfterSuccessfulMutations", func(t *testing.T) {
		publisher := &recordingPublisher{}
		svc := newTestService(registry.WithPublisher(publisher))

		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)
		course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 1)
		require.NoError(t, svc.RegisterForCourse(ctx, student.ID, course.ID))
		require.NoError(t, svc.SetGrade(ctx, student.ID, course.ID, registry.GradeGood))
		require.NoError(t, svc.UpdateStudentStatus(ctx, student.ID, registry.StatusGraduated))

		// failed operations publish nothing
		assert.Error(t, svc.RegisterForCourse(ctx, student.ID, 99))
		assert.Error(t, svc.SetGrade(ctx, 99, course.ID, registry.GradeGood))

		types := make([]registry.EventType, 0, len(publisher.events))
		for _, e := range publisher.events {
			types = append(types, e.Type)
			assert.NotEmpty(t, e.ID)
			assert.Equal(t, fixedNow, e.OccurredAt)
		}
		assert.Equal(t, []registry.EventType{
			registry.EventStudentEnrolled,
			registry.EventCourseAdded,
			registry.EventCourseRegistered,
			registry.EventGradeAssigned,
			registry.EventStudentStatusChanged,
		}, types)

		graded := publisher.events[3]
		require.NotNil(t, graded.Grade)
		assert.Equal(t, registry.GradeGood, *graded.Grade)
		assert.Equal(t, student.ID, graded.StudentID)
		assert.Equal(t, course.ID, graded.CourseID)
	})

	t.Run("PublishFailureDoesNotFailOperation", func(t *testing.T) {
		publisher := &recordingPublisher{err: errors.New("broker unavailable")}
		svc := newTestService(registry.WithPublisher(publisher))

		student := enroll(t, svc, "Ada", registry.FacultyComputerScience)

		stored, err := svc.GetStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, student.ID, stored.ID)
		assert.Len(t, publisher.events, 1)
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	a := enroll(t, svc, "Ada", registry.FacultyComputerScience)
	b := enroll(t, svc, "Grace", registry.FacultyComputerScience)
	course := addCourse(t, svc, "Compilers", registry.FacultyComputerScience, 5)
	require.NoError(t, svc.RegisterForCourse(ctx, a.ID, course.ID))
	require.NoError(t, svc.RegisterForCourse(ctx, b.ID, course.ID))
	require.NoError(t, svc.SetGrade(ctx, a.ID, course.ID, registry.GradeGood))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.Stats{Students: 2, Courses: 1, Registrations: 2, Graded: 1}, stats)
}

func TestSeedCatalog(t *testing.T) {
	svc := newTestService()

	courses, err := registry.SeedCatalog(context.Background(), svc, registry.DefaultCatalog())
	require.NoError(t, err)
	require.Len(t, courses, len(registry.DefaultCatalog()))
	for i, c := range courses {
		assert.Equal(t, i+1, c.ID)
	}
}
