package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"lms-service/internal/app"
	"lms-service/internal/domain"
)

// Handler exposes the LMS use cases over REST.
type Handler struct {
	service  *app.LMSService
	validate *validator.Validate
}

func NewHandler(service *app.LMSService) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// Register wires every route onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /login", h.login)

	mux.HandleFunc("POST /courses", h.createCourse)
	mux.HandleFunc("GET /courses", h.listCourses)
	mux.HandleFunc("GET /courses/recent", h.recentCourses)
	mux.HandleFunc("DELETE /courses/{id}", h.deleteCourse)

	mux.HandleFunc("POST /mcqs", h.createMCQ)
	mux.HandleFunc("GET /mcqs", h.listMCQs)
	mux.HandleFunc("GET /mcqs/grouped", h.groupedMCQs)
	mux.HandleFunc("GET /mcqs/course/{courseId}", h.courseMCQs)
	mux.HandleFunc("GET /mcqs/{id}", h.getMCQ)
	mux.HandleFunc("PUT /mcqs/{id}", h.updateMCQ)
	mux.HandleFunc("DELETE /mcqs/{id}", h.deleteMCQ)

	mux.HandleFunc("POST /tests", h.createTest)
	mux.HandleFunc("POST /tests/submit", h.submitTest)
	mux.HandleFunc("GET /tests", h.listTests)
	mux.HandleFunc("GET /tests/aggregated", h.aggregatedTests)
	mux.HandleFunc("GET /tests/user/{userId}", h.userTests)
	mux.HandleFunc("GET /tests/course/{courseId}", h.courseTests)
	mux.HandleFunc("GET /tests/user/{userId}/course/{courseId}", h.userCourseTests)

	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /leaderboard", h.leaderboard)
	mux.HandleFunc("GET /leaderboard/course/{courseId}", h.courseLeaderboard)
}

type signupRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type courseRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Duration    string `json:"duration" validate:"required"`
	Instructor  string `json:"instructor" validate:"required"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
}

type mcqRequest struct {
	Course           string   `json:"course" validate:"required"`
	Question         string   `json:"question" validate:"required"`
	Options          []string `json:"options" validate:"min=2,dive,required"`
	CorrectOptions   []int    `json:"correctOptions" validate:"min=1"`
	IsMultipleAnswer bool     `json:"isMultipleAnswer"`
}

type testRequest struct {
	User           domain.UserRef `json:"user"`
	Course         string         `json:"course" validate:"required"`
	Score          *int           `json:"score" validate:"required,min=0"`
	TotalQuestions *int           `json:"totalQuestions" validate:"required,min=0"`
}

type submitRequest struct {
	User    domain.UserRef `json:"user"`
	Course  string         `json:"course" validate:"required"`
	Answers [][]int        `json:"answers" validate:"required"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.SignUp(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !h.decode(w, r, &req) {
		return
	}
	course, err := h.service.CreateCourse(r.Context(), domain.Course{
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		Instructor:  req.Instructor,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.Courses(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handler) recentCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.RecentCourses(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCourse(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagePayload{Message: "Course deleted successfully"})
}

func (h *Handler) createMCQ(w http.ResponseWriter, r *http.Request) {
	var req mcqRequest
	if !h.decode(w, r, &req) {
		return
	}
	mcq, err := h.service.CreateMCQ(r.Context(), domain.MCQ{
		CourseID:         req.Course,
		Prompt:           req.Question,
		Options:          req.Options,
		CorrectOptions:   req.CorrectOptions,
		IsMultipleAnswer: req.IsMultipleAnswer,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mcq)
}

func (h *Handler) listMCQs(w http.ResponseWriter, r *http.Request) {
	mcqs, err := h.service.MCQs(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mcqs)
}

func (h *Handler) groupedMCQs(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.GroupedMCQs(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) courseMCQs(w http.ResponseWriter, r *http.Request) {
	mcqs, err := h.service.CourseMCQs(r.Context(), r.PathValue("courseId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if len(mcqs) == 0 {
		writeError(w, http.StatusNotFound, "No MCQs found for this course")
		return
	}
	writeJSON(w, http.StatusOK, mcqs)
}

func (h *Handler) getMCQ(w http.ResponseWriter, r *http.Request) {
	mcq, err := h.service.MCQ(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mcq)
}

func (h *Handler) updateMCQ(w http.ResponseWriter, r *http.Request) {
	var req mcqRequest
	if !h.decode(w, r, &req) {
		return
	}
	mcq, err := h.service.UpdateMCQ(r.Context(), domain.MCQ{
		ID:               r.PathValue("id"),
		CourseID:         req.Course,
		Prompt:           req.Question,
		Options:          req.Options,
		CorrectOptions:   req.CorrectOptions,
		IsMultipleAnswer: req.IsMultipleAnswer,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mcq)
}

func (h *Handler) deleteMCQ(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMCQ(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagePayload{Message: "MCQ deleted successfully"})
}

func (h *Handler) createTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if !h.decode(w, r, &req) {
		return
	}
	attempt, err := h.service.RecordAttempt(r.Context(), req.User, req.Course, *req.Score, *req.TotalQuestions)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) submitTest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	attempt, err := h.service.SubmitTest(r.Context(), req.User, req.Course, req.Answers)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) listTests(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.Attempts(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) aggregatedTests(w http.ResponseWriter, r *http.Request) {
	aggregates, err := h.service.CourseAggregates(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregates)
}

func (h *Handler) userTests(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.UserAttempts(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if len(attempts) == 0 {
		writeError(w, http.StatusNotFound, "No test results found for this user")
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) courseTests(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.CourseAttempts(r.Context(), r.PathValue("courseId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if len(attempts) == 0 {
		writeError(w, http.StatusNotFound, "No test results found for this course")
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) userCourseTests(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.UserCourseAttempts(r.Context(), r.PathValue("userId"), r.PathValue("courseId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if len(attempts) == 0 {
		writeError(w, http.StatusNotFound, "No test results found for this user and course")
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) courseLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.CourseLeaderboard(r.Context(), r.PathValue("courseId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// decode unmarshals and validates the request body, writing a 400 itself
// when either step fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrMCQNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTooFewOptions),
		errors.Is(err, domain.ErrNoCorrectOption),
		errors.Is(err, domain.ErrCorrectOptionRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type messagePayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}
