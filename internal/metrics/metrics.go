package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	studentsEnrolled      metric.Int64Counter
	coursesAdded          metric.Int64Counter
	registrations         metric.Int64Counter
	registrationsRejected metric.Int64Counter
	gradesAssigned        metric.Int64Counter
	statusChanges         metric.Int64Counter
	eventPublishFailures  metric.Int64Counter
	eventsReceived        metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.studentsEnrolled, err = meter.Int64Counter(
		"student_registry.students.enrolled",
		metric.WithDescription("Total number of students enrolled"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.coursesAdded, err = meter.Int64Counter(
		"student_registry.courses.added",
		metric.WithDescription("Total number of courses added to the catalog"),
		metric.WithUnit("{course}"),
	)
	if err != nil {
		return nil, err
	}

	m.registrations, err = meter.Int64Counter(
		"student_registry.registrations.created",
		metric.WithDescription("Total number of successful course registrations"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return nil, err
	}

	m.registrationsRejected, err = meter.Int64Counter(
		"student_registry.registrations.rejected",
		metric.WithDescription("Total number of rejected course registrations"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return nil, err
	}

	m.gradesAssigned, err = meter.Int64Counter(
		"student_registry.grades.assigned",
		metric.WithDescription("Total number of grades assigned"),
		metric.WithUnit("{grade}"),
	)
	if err != nil {
		return nil, err
	}

	m.statusChanges, err = meter.Int64Counter(
		"student_registry.students.status_changed",
		metric.WithDescription("Total number of student status changes"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	m.eventPublishFailures, err = meter.Int64Counter(
		"student_registry.events.publish_failures",
		metric.WithDescription("Total number of registry events that could not be published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.eventsReceived, err = meter.Int64Counter(
		"student_registry.events.received",
		metric.WithDescription("Total number of registry events consumed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordStudentEnrolled(ctx context.Context, faculty string) {
	if m != nil && m.studentsEnrolled != nil {
		m.studentsEnrolled.Add(ctx, 1, metric.WithAttributes(attribute.String("faculty", faculty)))
	}
}

func (m *Metrics) RecordCourseAdded(ctx context.Context, faculty string) {
	if m != nil && m.coursesAdded != nil {
		m.coursesAdded.Add(ctx, 1, metric.WithAttributes(attribute.String("faculty", faculty)))
	}
}

func (m *Metrics) RecordRegistration(ctx context.Context) {
	if m != nil && m.registrations != nil {
		m.registrations.Add(ctx, 1)
	}
}

// RecordRegistrationRejected counts a failed registration; reason is a short
// machine-readable label such as "course_full".
func (m *Metrics) RecordRegistrationRejected(ctx context.Context, reason string) {
	if m != nil && m.registrationsRejected != nil {
		m.registrationsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *Metrics) RecordGradeAssigned(ctx context.Context, grade int) {
	if m != nil && m.gradesAssigned != nil {
		m.gradesAssigned.Add(ctx, 1, metric.WithAttributes(attribute.Int("grade", grade)))
	}
}

func (m *Metrics) RecordStatusChange(ctx context.Context, from, to string) {
	if m != nil && m.statusChanges != nil {
		m.statusChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		))
	}
}

func (m *Metrics) RecordEventPublishFailure(ctx context.Context, eventType string) {
	if m != nil && m.eventPublishFailures != nil {
		m.eventPublishFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventType)))
	}
}

func (m *Metrics) RecordEventReceived(ctx context.Context, eventType string) {
	if m != nil && m.eventsReceived != nil {
		m.eventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventType)))
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
