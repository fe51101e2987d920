package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Snapshot is the current size of the registry.
type Snapshot struct {
	Students      int
	Courses       int
	Registrations int
	Graded        int
}

// RegisterSnapshotGauges exposes the registry size as observable gauges,
// sampled through snapshot on every collection.
func RegisterSnapshotGauges(meter metric.Meter, snapshot func(ctx context.Context) (Snapshot, error)) error {
	students, err := meter.Int64ObservableGauge(
		"student_registry.students",
		metric.WithDescription("Number of students in the registry"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return err
	}

	courses, err := meter.Int64ObservableGauge(
		"student_registry.courses",
		metric.WithDescription("Number of courses in the catalog"),
		metric.WithUnit("{course}"),
	)
	if err != nil {
		return err
	}

	registrations, err := meter.Int64ObservableGauge(
		"student_registry.registrations",
		metric.WithDescription("Number of course registrations"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return err
	}

	graded, err := meter.Int64ObservableGauge(
		"student_registry.registrations.graded",
		metric.WithDescription("Number of registrations that carry a grade"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			s, err := snapshot(ctx)
			if err != nil {
				return err
			}
			observer.ObserveInt64(students, int64(s.Students))
			observer.ObserveInt64(courses, int64(s.Courses))
			observer.ObserveInt64(registrations, int64(s.Registrations))
			observer.ObserveInt64(graded, int64(s.Graded))
			return nil
		},
		students,
		courses,
		registrations,
		graded,
	)
	return err
}
