package app_test

import (
	"context"
	"fmt"
	"testing"

	"lms-service/internal/app"
	"lms-service/internal/domain"
	"lms-service/internal/infra/memory"
)

func TestSignUpAndLogIn(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	user, err := service.SignUp(ctx, "Alice", "Smith", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.ID == "" || user.PasswordHash == "secret123" {
		t.Fatalf("expected generated id and hashed password, got %+v", user)
	}

	if _, err := service.SignUp(ctx, "Alice", "Clone", "alice@example.com", "other456"); err != domain.ErrEmailTaken {
		t.Fatalf("expected email-taken error, got %v", err)
	}

	logged, err := service.LogIn(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected same user, got %+v", logged)
	}

	if _, err := service.LogIn(ctx, "alice@example.com", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := service.LogIn(ctx, "nobody@example.com", "secret123"); err != domain.ErrUserNotFound {
		t.Fatalf("expected user-not-found, got %v", err)
	}
}

func TestRecordAttemptSumsAcrossAttempts(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	user := mustSignUp(t, service, "Bob", "Jones", "bob@example.com")
	course := mustCreateCourse(t, service, "Algebra")

	for _, score := range []int{3, 5} {
		if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, score, 10); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}

	entries, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one group, got %d", len(entries))
	}
	if entries[0].TotalScore != 8 {
		t.Fatalf("expected summed score 8, got %d", entries[0].TotalScore)
	}
	if entries[0].User.FirstName != "Bob" || entries[0].Course.Name != "Algebra" {
		t.Fatalf("expected joined display data, got %+v", entries[0])
	}
}

func TestRecordAttemptUnresolvableRefs(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	user := mustSignUp(t, service, "Bob", "Jones", "bob@example.com")
	course := mustCreateCourse(t, service, "Algebra")

	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: "missing"}, course.ID, 1, 1); err != domain.ErrUserNotFound {
		t.Fatalf("expected user-not-found, got %v", err)
	}
	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, "missing", 1, 1); err != domain.ErrCourseNotFound {
		t.Fatalf("expected course-not-found, got %v", err)
	}
	if _, err := service.RecordAttempt(ctx, domain.UserRef{}, course.ID, 1, 1); err != domain.ErrUserNotFound {
		t.Fatalf("expected user-not-found for empty ref, got %v", err)
	}
}

func TestRecordAttemptResolvesUserByName(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	user := mustSignUp(t, service, "Carol", "White", "carol@example.com")
	course := mustCreateCourse(t, service, "History")

	attempt, err := service.RecordAttempt(ctx, domain.UserRef{FirstName: "Carol", LastName: "White"}, course.ID, 4, 5)
	if err != nil {
		t.Fatalf("record attempt by name: %v", err)
	}
	if attempt.UserID != user.ID {
		t.Fatalf("expected attempt bound to %s, got %s", user.ID, attempt.UserID)
	}
}

func TestSubmitTestGradesAndPersists(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	user := mustSignUp(t, service, "Dave", "Brown", "dave@example.com")
	course := mustCreateCourse(t, service, "Go Basics")

	if _, err := service.CreateMCQ(ctx, domain.MCQ{
		CourseID:       course.ID,
		Prompt:         "Pick b",
		Options:        []string{"a", "b"},
		CorrectOptions: []int{1},
	}); err != nil {
		t.Fatalf("create mcq: %v", err)
	}
	if _, err := service.CreateMCQ(ctx, domain.MCQ{
		CourseID:         course.ID,
		Prompt:           "Pick a and c",
		Options:          []string{"a", "b", "c"},
		CorrectOptions:   []int{0, 2},
		IsMultipleAnswer: true,
	}); err != nil {
		t.Fatalf("create mcq: %v", err)
	}

	attempt, err := service.SubmitTest(ctx, domain.UserRef{ID: user.ID}, course.ID, [][]int{{1}, {0, 2}})
	if err != nil {
		t.Fatalf("submit test: %v", err)
	}
	if attempt.Score != 2 || attempt.TotalQuestions != 2 {
		t.Fatalf("expected 2/2, got %d/%d", attempt.Score, attempt.TotalQuestions)
	}

	attempts, err := service.UserCourseAttempts(ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Score != 2 {
		t.Fatalf("expected one persisted attempt with score 2, got %+v", attempts)
	}
}

func TestLeaderboardTruncatesToTopTen(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	course := mustCreateCourse(t, service, "Physics")

	for i := 1; i <= 15; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		user := mustSignUp(t, service, fmt.Sprintf("User%d", i), "Test", email)
		if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, i, 15); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}

	entries, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected top 10, got %d entries", len(entries))
	}
	if entries[0].TotalScore != 15 || entries[9].TotalScore != 6 {
		t.Fatalf("expected scores 15..6 descending, got %d..%d", entries[0].TotalScore, entries[9].TotalScore)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].TotalScore > entries[i-1].TotalScore {
			t.Fatalf("entries out of order at %d: %+v", i, entries)
		}
	}

	// The per-course variant is unbounded.
	all, err := service.CourseLeaderboard(ctx, course.ID)
	if err != nil {
		t.Fatalf("course leaderboard: %v", err)
	}
	if len(all) != 15 {
		t.Fatalf("expected all 15 groups, got %d", len(all))
	}
}

func TestStatsAverageIsAbsoluteCountMean(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AverageScore != 0 {
		t.Fatalf("expected zero average with no attempts, got %v", stats.AverageScore)
	}

	user := mustSignUp(t, service, "Eve", "Green", "eve@example.com")
	course := mustCreateCourse(t, service, "Chemistry")
	// A 1/1 attempt and a 9/10 attempt contribute 1 and 9 equally.
	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, 1, 1); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, 9, 10); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	stats, err = service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AverageScore != 5 {
		t.Fatalf("expected mean 5, got %v", stats.AverageScore)
	}
	if stats.TotalUsers != 1 || stats.TotalCourses != 1 || stats.TotalTests != 2 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestSubscribeLeaderboardReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	user := mustSignUp(t, service, "Frank", "Black", "frank@example.com")
	course := mustCreateCourse(t, service, "Biology")

	ch, cancel, err := service.SubscribeLeaderboard(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, 7, 10); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	update := <-ch
	if len(update) != 1 || update[0].TotalScore != 7 {
		t.Fatalf("expected updated leaderboard, got %+v", update)
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	user := mustSignUp(t, service, "Grace", "Hall", "grace@example.com")
	course := mustCreateCourse(t, service, "Doomed")

	mcq, err := service.CreateMCQ(ctx, domain.MCQ{
		CourseID:       course.ID,
		Prompt:         "q",
		Options:        []string{"a", "b"},
		CorrectOptions: []int{0},
	})
	if err != nil {
		t.Fatalf("create mcq: %v", err)
	}
	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, 1, 1); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	if err := service.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}

	if _, err := service.MCQ(ctx, mcq.ID); err != domain.ErrMCQNotFound {
		t.Fatalf("expected mcq removed, got %v", err)
	}
	entries, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty leaderboard after cascade, got %+v", entries)
	}
	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTests != 0 || stats.TotalMCQs != 0 {
		t.Fatalf("expected attempts and mcqs removed, got %+v", stats)
	}
}

func newTestService() *app.LMSService {
	store := memory.NewStore()
	return app.NewLMSService(store, store, store, store, store)
}

func mustSignUp(t *testing.T, service *app.LMSService, first, last, email string) domain.User {
	t.Helper()
	user, err := service.SignUp(context.Background(), first, last, email, "secret123")
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return user
}

func mustCreateCourse(t *testing.T, service *app.LMSService, name string) domain.Course {
	t.Helper()
	course, err := service.CreateCourse(context.Background(), domain.Course{
		Name:        name,
		Description: "desc",
		Duration:    "2 weeks",
		Instructor:  "Instructor",
	})
	if err != nil {
		t.Fatalf("create course %s: %v", name, err)
	}
	return course
}
