package registry

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"student-registry/internal/httputil"
	"student-registry/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: NewValidator(),
		logger:   logger,
	}
}

// NewValidator returns a validator that knows the registry enum tags:
// faculty, student_status, course_type and semester.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("faculty", func(fl validator.FieldLevel) bool {
		return Faculty(fl.Field().String()).Valid()
	})
	v.RegisterValidation("student_status", func(fl validator.FieldLevel) bool {
		return StudentStatus(fl.Field().String()).Valid()
	})
	v.RegisterValidation("course_type", func(fl validator.FieldLevel) bool {
		return CourseType(fl.Field().String()).Valid()
	})
	v.RegisterValidation("semester", func(fl validator.FieldLevel) bool {
		return Semester(fl.Field().String()).Valid()
	})
	return v
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/students", h.EnrollStudent)
	router.Get("/students", h.ListStudents)
	router.Get("/students/{id}", h.GetStudent)
	router.Put("/students/{id}/status", h.UpdateStudentStatus)
	router.Get("/students/{id}/grades", h.GetStudentGrades)
	router.Get("/students/{id}/average", h.GetAverageGrade)

	router.Post("/courses", h.AddCourse)
	router.Get("/courses", h.ListCourses)
	router.Get("/courses/{id}", h.GetCourse)

	router.Post("/registrations", h.RegisterForCourse)
	router.Put("/grades", h.SetGrade)

	router.Get("/faculties/{faculty}/top-students", h.GetTopStudents)
	router.Get("/stats", h.GetStats)
}

type StatusRequest struct {
	Status StudentStatus `json:"status" validate:"required,student_status"`
}

type RegistrationRequest struct {
	StudentID int `json:"studentId" validate:"required,min=1"`
	CourseID  int `json:"courseId" validate:"required,min=1"`
}

type GradeRequest struct {
	StudentID int `json:"studentId" validate:"required,min=1"`
	CourseID  int `json:"courseId" validate:"required,min=1"`
	Grade     int `json:"grade" validate:"oneof=2 3 4 5"`
}

type AverageResponse struct {
	StudentID int     `json:"studentId"`
	Average   float64 `json:"average"`
}

func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	var input StudentInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if input.EnrollmentDate.IsZero() {
		input.EnrollmentDate = time.Now().UTC()
	}

	student, err := h.service.EnrollStudent(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "student enrolled", "student_id", student.ID, "faculty", student.Faculty)
	httputil.RespondWithJSON(w, http.StatusCreated, student)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	var (
		students []Student
		err      error
	)
	if raw := r.URL.Query().Get("faculty"); raw != "" {
		faculty, perr := ParseFaculty(raw)
		if perr != nil {
			h.handleServiceError(w, r, perr)
			return
		}
		students, err = h.service.GetStudentsByFaculty(r.Context(), faculty)
	} else {
		students, err = h.service.ListStudents(r.Context())
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, students)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	student, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) UpdateStudentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateStudentStatus(r.Context(), id, req.Status); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	student, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "student status updated", "student_id", id, "status", req.Status)
	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) GetStudentGrades(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	records, err := h.service.GetStudentGrades(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, records)
}

func (h *Handler) GetAverageGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	avg, err := h.service.CalculateAverageGrade(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, AverageResponse{StudentID: id, Average: avg})
}

func (h *Handler) AddCourse(w http.ResponseWriter, r *http.Request) {
	var input CourseInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.service.AddCourse(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "course added", "course_id", course.ID, "faculty", course.Faculty)
	httputil.RespondWithJSON(w, http.StatusCreated, course)
}

// ListCourses filters by faculty and semester when both are given.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawFaculty, rawSemester := q.Get("faculty"), q.Get("semester")

	if rawFaculty == "" && rawSemester == "" {
		courses, err := h.service.ListCourses(r.Context())
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		httputil.RespondWithJSON(w, http.StatusOK, courses)
		return
	}

	if rawFaculty == "" || rawSemester == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "faculty and semester must be given together")
		return
	}
	faculty, err := ParseFaculty(rawFaculty)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	semester, err := ParseSemester(rawSemester)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	courses, err := h.service.GetAvailableCourses(r.Context(), faculty, semester)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, courses)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, course)
}

func (h *Handler) RegisterForCourse(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.RegisterForCourse(r.Context(), req.StudentID, req.CourseID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "student registered for course", "student_id", req.StudentID, "course_id", req.CourseID)
	httputil.RespondWithJSON(w, http.StatusCreated, req)
}

func (h *Handler) SetGrade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetGrade(r.Context(), req.StudentID, req.CourseID, Grade(req.Grade)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "grade assigned", "student_id", req.StudentID, "course_id", req.CourseID, "grade", req.Grade)
	httputil.RespondWithJSON(w, http.StatusOK, req)
}

func (h *Handler) GetTopStudents(w http.ResponseWriter, r *http.Request) {
	faculty, err := ParseFaculty(chi.URLParam(r, "faculty"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	students, err := h.service.GetTopStudentsByFaculty(r.Context(), faculty)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, students)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidReference), errors.Is(err, ErrNotRegistered):
		h.logger.InfoContext(ctx, "reference not found", "error", err)
		httputil.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrCourseFull), errors.Is(err, ErrAlreadyRegistered):
		h.logger.InfoContext(ctx, "registration conflict", "error", err)
		httputil.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrFacultyMismatch), errors.Is(err, ErrIllegalTransition):
		h.logger.InfoContext(ctx, "rule violation", "error", err)
		httputil.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.ErrorContext(ctx, "internal error", "error", err, "path", r.URL.Path)
		observability.CaptureErr(ctx, err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
