package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"student-registry/internal/logger"
	"student-registry/internal/registry"

	"github.com/joho/godotenv"
)

// demo walks the registry through a typical term: seed the catalog, enroll
// students, register, grade and query, including the rejected cases.
func main() {
	_ = godotenv.Load()

	log := logger.NewWithServiceContext("student-registry-demo", "dev", logger.Options{
		Level: os.Getenv("LOG_LEVEL"),
	})

	if err := run(context.Background(), log); err != nil {
		log.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	svc := registry.NewService(registry.NewMemoryRepository())

	catalog, err := registry.SeedCatalog(ctx, svc, registry.DefaultCatalog())
	if err != nil {
		return err
	}
	log.Info("catalog seeded", "courses", len(catalog))
	byName := make(map[string]registry.Course, len(catalog))
	for _, c := range catalog {
		byName[c.Name] = c
	}

	enrolled := time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC)
	alice, err := svc.EnrollStudent(ctx, registry.StudentInput{
		FullName: "Alice Novak", Faculty: registry.FacultyComputerScience, Year: 2,
		Status: registry.StatusActive, EnrollmentDate: enrolled, Group: "CS-21",
	})
	if err != nil {
		return err
	}
	bob, err := svc.EnrollStudent(ctx, registry.StudentInput{
		FullName: "Bob Keller", Faculty: registry.FacultyEconomics, Year: 1,
		Status: registry.StatusActive, EnrollmentDate: enrolled, Group: "EC-11",
	})
	if err != nil {
		return err
	}
	carol, err := svc.EnrollStudent(ctx, registry.StudentInput{
		FullName: "Carol Diaz", Faculty: registry.FacultyEconomics, Year: 3,
		Status: registry.StatusActive, EnrollmentDate: enrolled, Group: "EC-31",
	})
	if err != nil {
		return err
	}
	log.Info("students enrolled", "alice", alice.ID, "bob", bob.ID, "carol", carol.ID)

	register := func(s *registry.Student, course string) {
		c := byName[course]
		if err := svc.RegisterForCourse(ctx, s.ID, c.ID); err != nil {
			log.Warn("registration rejected", "student", s.FullName, "course", c.Name, "error", err)
			return
		}
		log.Info("registered", "student", s.FullName, "course", c.Name)
	}
	grade := func(s *registry.Student, course string, g registry.Grade) {
		c := byName[course]
		if err := svc.SetGrade(ctx, s.ID, c.ID, g); err != nil {
			log.Warn("grade rejected", "student", s.FullName, "course", c.Name, "error", err)
			return
		}
		log.Info("graded", "student", s.FullName, "course", c.Name, "grade", g.String())
	}

	register(alice, "Programming Fundamentals")
	register(alice, "Machine Learning")
	register(bob, "Behavioral Finance")
	register(bob, "Microeconomics")
	register(carol, "Microeconomics")

	// expected failures
	register(alice, "Microeconomics")     // faculty mismatch
	register(carol, "Behavioral Finance") // capacity of one already taken
	register(alice, "Machine Learning")   // duplicate
	grade(carol, "Behavioral Finance", registry.GradeGood)

	grade(alice, "Programming Fundamentals", registry.GradeExcellent)
	grade(alice, "Machine Learning", registry.GradeGood)
	grade(bob, "Behavioral Finance", registry.GradeGood)
	grade(bob, "Microeconomics", registry.GradeGood)
	grade(carol, "Microeconomics", registry.GradeSatisfactory)

	for _, s := range []*registry.Student{alice, bob, carol} {
		avg, err := svc.CalculateAverageGrade(ctx, s.ID)
		if err != nil {
			return err
		}
		log.Info("average grade", "student", s.FullName, "average", avg)
	}

	for _, f := range []registry.Faculty{registry.FacultyComputerScience, registry.FacultyEconomics} {
		top, err := svc.GetTopStudentsByFaculty(ctx, f)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(top))
		for _, s := range top {
			names = append(names, s.FullName)
		}
		log.Info("top students", "faculty", f, "students", names)
	}

	available, err := svc.GetAvailableCourses(ctx, registry.FacultyComputerScience, registry.SemesterSecond)
	if err != nil {
		return err
	}
	log.Info("second semester courses", "faculty", registry.FacultyComputerScience, "count", len(available))

	if err := svc.UpdateStudentStatus(ctx, carol.ID, registry.StatusExpelled); err != nil {
		return err
	}
	if err := svc.UpdateStudentStatus(ctx, carol.ID, registry.StatusActive); err != nil {
		log.Warn("status change rejected", "student", carol.FullName, "error", err)
	}
	if err := svc.UpdateStudentStatus(ctx, carol.ID, registry.StatusAcademicLeave); err != nil {
		return err
	}
	log.Info("status updated", "student", carol.FullName, "status", registry.StatusAcademicLeave)

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	log.Info("registry summary",
		"students", stats.Students,
		"courses", stats.Courses,
		"registrations", stats.Registrations,
		"graded", stats.Graded,
	)
	return nil
}
