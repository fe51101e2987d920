package registry

import "context"

// DefaultCatalog is the course set the demo and `catalog.seed` start from.
func DefaultCatalog() []CourseInput {
	return []CourseInput{
		{Name: "Programming Fundamentals", Type: CourseMandatory, Credits: 6, Semester: SemesterFirst, Faculty: FacultyComputerScience, MaxStudents: 30},
		{Name: "Algorithms and Data Structures", Type: CourseMandatory, Credits: 5, Semester: SemesterSecond, Faculty: FacultyComputerScience, MaxStudents: 25},
		{Name: "Machine Learning", Type: CourseSpecial, Credits: 4, Semester: SemesterSecond, Faculty: FacultyComputerScience, MaxStudents: 2},
		{Name: "Microeconomics", Type: CourseMandatory, Credits: 5, Semester: SemesterFirst, Faculty: FacultyEconomics, MaxStudents: 40},
		{Name: "Behavioral Finance", Type: CourseOptional, Credits: 3, Semester: SemesterSecond, Faculty: FacultyEconomics, MaxStudents: 1},
		{Name: "Constitutional Law", Type: CourseMandatory, Credits: 5, Semester: SemesterFirst, Faculty: FacultyLaw, MaxStudents: 50},
		{Name: "Engineering Mechanics", Type: CourseMandatory, Credits: 6, Semester: SemesterFirst, Faculty: FacultyEngineering, MaxStudents: 35},
	}
}

// SeedCatalog adds every course in inputs through the regular AddCourse path.
func SeedCatalog(ctx context.Context, svc Service, inputs []CourseInput) ([]Course, error) {
	courses := make([]Course, 0, len(inputs))
	for _, input := range inputs {
		course, err := svc.AddCourse(ctx, input)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *course)
	}
	return courses, nil
}
