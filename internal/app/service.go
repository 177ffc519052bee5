package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lms-service/internal/domain"
)

// LeaderboardLimit caps the global leaderboard at the top scoring groups.
const LeaderboardLimit = 10

// RecentCourseLimit caps the recent-courses listing.
const RecentCourseLimit = 5

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByID(ctx context.Context, id string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByName(ctx context.Context, firstName, lastName string) (domain.User, error)
}

// CourseRepository abstracts course persistence. DeleteCourse cascades to the
// course's MCQs and attempts.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course *domain.Course) error
	Courses(ctx context.Context) ([]domain.Course, error)
	RecentCourses(ctx context.Context, limit int) ([]domain.Course, error)
	CourseByID(ctx context.Context, id string) (domain.Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

// MCQRepository abstracts question persistence.
type MCQRepository interface {
	CreateMCQ(ctx context.Context, mcq *domain.MCQ) error
	UpdateMCQ(ctx context.Context, mcq domain.MCQ) (domain.MCQ, error)
	DeleteMCQ(ctx context.Context, id string) error
	MCQByID(ctx context.Context, id string) (domain.MCQ, error)
	MCQs(ctx context.Context) ([]domain.MCQ, error)
	CourseMCQs(ctx context.Context, courseID string) ([]domain.MCQ, error)
	GroupedMCQs(ctx context.Context) ([]domain.CourseMCQGroup, error)
}

// AttemptRepository abstracts test-attempt persistence. Attempts are
// insert-only; listings join user and course display data.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt *domain.TestAttempt) error
	Attempts(ctx context.Context) ([]domain.AttemptDetail, error)
	UserAttempts(ctx context.Context, userID string) ([]domain.AttemptDetail, error)
	CourseAttempts(ctx context.Context, courseID string) ([]domain.AttemptDetail, error)
	UserCourseAttempts(ctx context.Context, userID, courseID string) ([]domain.AttemptDetail, error)
}

// AggregateRepository computes derived views over stored entities. Empty
// collections yield empty slices and zero-valued stats, never errors.
type AggregateRepository interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	CourseLeaderboard(ctx context.Context, courseID string) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context) (domain.Stats, error)
	CourseAggregates(ctx context.Context) ([]domain.CourseAggregate, error)
}

// AggregateInvalidator is implemented by caching aggregate repositories so
// writes can drop stale snapshots.
type AggregateInvalidator interface {
	InvalidateAggregates(ctx context.Context) error
}

// LMSService contains the core use cases: accounts, course and question
// management, grading, and the derived leaderboard/stats views.
type LMSService struct {
	users      UserRepository
	courses    CourseRepository
	mcqs       MCQRepository
	attempts   AttemptRepository
	aggregates AggregateRepository
	feed       *LeaderboardFeed
}

func NewLMSService(users UserRepository, courses CourseRepository, mcqs MCQRepository, attempts AttemptRepository, aggregates AggregateRepository) *LMSService {
	return &LMSService{
		users:      users,
		courses:    courses,
		mcqs:       mcqs,
		attempts:   attempts,
		aggregates: aggregates,
		feed:       NewLeaderboardFeed(),
	}
}

// SignUp registers a new user with a bcrypt-hashed password.
func (s *LMSService) SignUp(ctx context.Context, firstName, lastName, email, password string) (domain.User, error) {
	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if err != domain.ErrUserNotFound {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// LogIn verifies credentials and returns the matching user.
func (s *LMSService) LogIn(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// CreateCourse persists a new course.
func (s *LMSService) CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	course.ID = uuid.NewString()
	course.CreatedAt = time.Now().UTC()
	if err := s.courses.CreateCourse(ctx, &course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}

func (s *LMSService) Courses(ctx context.Context) ([]domain.Course, error) {
	return s.courses.Courses(ctx)
}

func (s *LMSService) RecentCourses(ctx context.Context) ([]domain.Course, error) {
	return s.courses.RecentCourses(ctx, RecentCourseLimit)
}

// DeleteCourse removes a course together with its questions and attempts.
func (s *LMSService) DeleteCourse(ctx context.Context, id string) error {
	if err := s.courses.DeleteCourse(ctx, id); err != nil {
		return err
	}
	s.refreshLeaderboard(ctx)
	return nil
}

// CreateMCQ validates and persists a new question for a course.
func (s *LMSService) CreateMCQ(ctx context.Context, mcq domain.MCQ) (domain.MCQ, error) {
	if err := mcq.Validate(); err != nil {
		return domain.MCQ{}, err
	}
	if _, err := s.courses.CourseByID(ctx, mcq.CourseID); err != nil {
		return domain.MCQ{}, err
	}
	mcq.ID = uuid.NewString()
	if err := s.mcqs.CreateMCQ(ctx, &mcq); err != nil {
		return domain.MCQ{}, err
	}
	return mcq, nil
}

// UpdateMCQ replaces an existing question after re-validating it.
func (s *LMSService) UpdateMCQ(ctx context.Context, mcq domain.MCQ) (domain.MCQ, error) {
	if err := mcq.Validate(); err != nil {
		return domain.MCQ{}, err
	}
	return s.mcqs.UpdateMCQ(ctx, mcq)
}

func (s *LMSService) DeleteMCQ(ctx context.Context, id string) error {
	return s.mcqs.DeleteMCQ(ctx, id)
}

func (s *LMSService) MCQ(ctx context.Context, id string) (domain.MCQ, error) {
	return s.mcqs.MCQByID(ctx, id)
}

func (s *LMSService) MCQs(ctx context.Context) ([]domain.MCQ, error) {
	return s.mcqs.MCQs(ctx)
}

func (s *LMSService) CourseMCQs(ctx context.Context, courseID string) ([]domain.MCQ, error) {
	return s.mcqs.CourseMCQs(ctx, courseID)
}

func (s *LMSService) GroupedMCQs(ctx context.Context) ([]domain.CourseMCQGroup, error) {
	return s.mcqs.GroupedMCQs(ctx)
}

// RecordAttempt persists a pre-scored attempt after resolving the user and
// course references. The caller sees a single atomic operation: on any
// failure no attempt is recorded.
func (s *LMSService) RecordAttempt(ctx context.Context, ref domain.UserRef, courseID string, score, totalQuestions int) (domain.TestAttempt, error) {
	user, err := s.resolveUser(ctx, ref)
	if err != nil {
		return domain.TestAttempt{}, err
	}
	course, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return domain.TestAttempt{}, err
	}

	attempt := domain.TestAttempt{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		CourseID:       course.ID,
		Score:          score,
		TotalQuestions: totalQuestions,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.attempts.CreateAttempt(ctx, &attempt); err != nil {
		return domain.TestAttempt{}, err
	}
	s.refreshLeaderboard(ctx)
	return attempt, nil
}

// SubmitTest grades a submission server-side and records the attempt. The
// answers grade the first len(answers) questions of the course bank, in
// stored order.
func (s *LMSService) SubmitTest(ctx context.Context, ref domain.UserRef, courseID string, answers [][]int) (domain.TestAttempt, error) {
	questions, err := s.mcqs.CourseMCQs(ctx, courseID)
	if err != nil {
		return domain.TestAttempt{}, err
	}
	score := Grade(questions, answers)
	return s.RecordAttempt(ctx, ref, courseID, score, len(answers))
}

func (s *LMSService) Attempts(ctx context.Context) ([]domain.AttemptDetail, error) {
	return s.attempts.Attempts(ctx)
}

func (s *LMSService) UserAttempts(ctx context.Context, userID string) ([]domain.AttemptDetail, error) {
	return s.attempts.UserAttempts(ctx, userID)
}

func (s *LMSService) CourseAttempts(ctx context.Context, courseID string) ([]domain.AttemptDetail, error) {
	return s.attempts.CourseAttempts(ctx, courseID)
}

func (s *LMSService) UserCourseAttempts(ctx context.Context, userID, courseID string) ([]domain.AttemptDetail, error) {
	return s.attempts.UserCourseAttempts(ctx, userID, courseID)
}

// Leaderboard returns the top scoring (user, course) groups.
func (s *LMSService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.aggregates.Leaderboard(ctx, LeaderboardLimit)
}

// CourseLeaderboard returns every scoring group for one course.
func (s *LMSService) CourseLeaderboard(ctx context.Context, courseID string) ([]domain.LeaderboardEntry, error) {
	if _, err := s.courses.CourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.aggregates.CourseLeaderboard(ctx, courseID)
}

func (s *LMSService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.aggregates.Stats(ctx)
}

func (s *LMSService) CourseAggregates(ctx context.Context) ([]domain.CourseAggregate, error) {
	return s.aggregates.CourseAggregates(ctx)
}

// SubscribeLeaderboard returns a channel receiving the refreshed global
// leaderboard after every write that can change it. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *LMSService) SubscribeLeaderboard(ctx context.Context) (<-chan []domain.LeaderboardEntry, func(), error) {
	initial, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(initial)
	return ch, cancel, nil
}

func (s *LMSService) resolveUser(ctx context.Context, ref domain.UserRef) (domain.User, error) {
	if ref.ID != "" {
		return s.users.UserByID(ctx, ref.ID)
	}
	if ref.FirstName == "" && ref.LastName == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users.UserByName(ctx, ref.FirstName, ref.LastName)
}

// refreshLeaderboard drops cached aggregates and pushes the new ranking to
// feed subscribers. Best effort: the triggering write has already succeeded.
func (s *LMSService) refreshLeaderboard(ctx context.Context) {
	if inv, ok := s.aggregates.(AggregateInvalidator); ok {
		_ = inv.InvalidateAggregates(ctx)
	}
	if lb, err := s.aggregates.Leaderboard(ctx, LeaderboardLimit); err == nil {
		s.feed.Publish(lb)
	}
}
