package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStudentEnrolled      EventType = "student.enrolled"
	EventCourseAdded          EventType = "course.added"
	EventCourseRegistered     EventType = "course.registered"
	EventGradeAssigned        EventType = "grade.assigned"
	EventStudentStatusChanged EventType = "student.status_changed"
)

// Event describes a successful registry mutation.
type Event struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	StudentID  int           `json:"studentId,omitempty"`
	CourseID   int           `json:"courseId,omitempty"`
	Faculty    Faculty       `json:"faculty,omitempty"`
	Grade      *Grade        `json:"grade,omitempty"`
	Status     StudentStatus `json:"status,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func newEvent(t EventType, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: at,
	}
}

// Publisher delivers registry events to a broker (NATS or Kafka).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
