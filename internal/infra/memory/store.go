package memory

import (
	"context"
	"sort"
	"sync"

	"lms-service/internal/domain"
)

// Store is an in-memory implementation of every app repository. It backs the
// service in tests and when no Postgres URL is configured, and implements the
// aggregation views as explicit group-by / sort / limit / join passes over
// the materialized collections.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	courses  map[string]domain.Course
	mcqs     map[string]domain.MCQ
	mcqOrder []string
	attempts []domain.TestAttempt
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		courses: make(map[string]domain.Course),
		mcqs:    make(map[string]domain.MCQ),
	}
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) UserByName(_ context.Context, firstName, lastName string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.FirstName == firstName && user.LastName == lastName {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) CreateCourse(_ context.Context, course *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[course.ID] = *course
	return nil
}

func (s *Store) Courses(_ context.Context) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCoursesLocked(), nil
}

func (s *Store) RecentCourses(_ context.Context, limit int) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := s.sortedCoursesLocked()
	// Newest first.
	for i, j := 0, len(courses)-1; i < j; i, j = i+1, j-1 {
		courses[i], courses[j] = courses[j], courses[i]
	}
	if limit > 0 && len(courses) > limit {
		courses = courses[:limit]
	}
	return courses, nil
}

func (s *Store) CourseByID(_ context.Context, id string) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return course, nil
}

// DeleteCourse removes the course and cascades to its MCQs and attempts.
func (s *Store) DeleteCourse(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(s.courses, id)

	kept := s.mcqOrder[:0]
	for _, mcqID := range s.mcqOrder {
		if s.mcqs[mcqID].CourseID == id {
			delete(s.mcqs, mcqID)
			continue
		}
		kept = append(kept, mcqID)
	}
	s.mcqOrder = kept

	attempts := s.attempts[:0]
	for _, attempt := range s.attempts {
		if attempt.CourseID != id {
			attempts = append(attempts, attempt)
		}
	}
	s.attempts = attempts
	return nil
}

func (s *Store) CreateMCQ(_ context.Context, mcq *domain.MCQ) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[mcq.CourseID]; !ok {
		return domain.ErrCourseNotFound
	}
	s.mcqs[mcq.ID] = *mcq
	s.mcqOrder = append(s.mcqOrder, mcq.ID)
	return nil
}

func (s *Store) UpdateMCQ(_ context.Context, mcq domain.MCQ) (domain.MCQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mcqs[mcq.ID]; !ok {
		return domain.MCQ{}, domain.ErrMCQNotFound
	}
	s.mcqs[mcq.ID] = mcq
	return mcq, nil
}

func (s *Store) DeleteMCQ(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mcqs[id]; !ok {
		return domain.ErrMCQNotFound
	}
	delete(s.mcqs, id)
	for i, mcqID := range s.mcqOrder {
		if mcqID == id {
			s.mcqOrder = append(s.mcqOrder[:i], s.mcqOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) MCQByID(_ context.Context, id string) (domain.MCQ, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mcq, ok := s.mcqs[id]
	if !ok {
		return domain.MCQ{}, domain.ErrMCQNotFound
	}
	return mcq, nil
}

func (s *Store) MCQs(_ context.Context) ([]domain.MCQ, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mcqs := make([]domain.MCQ, 0, len(s.mcqOrder))
	for _, id := range s.mcqOrder {
		mcqs = append(mcqs, s.mcqs[id])
	}
	return mcqs, nil
}

// CourseMCQs preserves insertion order; test submissions grade a prefix of
// this sequence.
func (s *Store) CourseMCQs(_ context.Context, courseID string) ([]domain.MCQ, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var mcqs []domain.MCQ
	for _, id := range s.mcqOrder {
		if mcq := s.mcqs[id]; mcq.CourseID == courseID {
			mcqs = append(mcqs, mcq)
		}
	}
	return mcqs, nil
}

func (s *Store) GroupedMCQs(_ context.Context) ([]domain.CourseMCQGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCourse := make(map[string][]domain.MCQ)
	for _, id := range s.mcqOrder {
		mcq := s.mcqs[id]
		byCourse[mcq.CourseID] = append(byCourse[mcq.CourseID], mcq)
	}
	groups := make([]domain.CourseMCQGroup, 0, len(byCourse))
	for _, course := range s.sortedCoursesLocked() {
		if mcqs, ok := byCourse[course.ID]; ok {
			groups = append(groups, domain.CourseMCQGroup{Course: course, MCQs: mcqs})
		}
	}
	return groups, nil
}

func (s *Store) CreateAttempt(_ context.Context, attempt *domain.TestAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[attempt.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := s.courses[attempt.CourseID]; !ok {
		return domain.ErrCourseNotFound
	}
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *Store) Attempts(_ context.Context) ([]domain.AttemptDetail, error) {
	return s.filterAttempts(func(domain.TestAttempt) bool { return true }), nil
}

func (s *Store) UserAttempts(_ context.Context, userID string) ([]domain.AttemptDetail, error) {
	return s.filterAttempts(func(a domain.TestAttempt) bool { return a.UserID == userID }), nil
}

func (s *Store) CourseAttempts(_ context.Context, courseID string) ([]domain.AttemptDetail, error) {
	return s.filterAttempts(func(a domain.TestAttempt) bool { return a.CourseID == courseID }), nil
}

func (s *Store) UserCourseAttempts(_ context.Context, userID, courseID string) ([]domain.AttemptDetail, error) {
	return s.filterAttempts(func(a domain.TestAttempt) bool {
		return a.UserID == userID && a.CourseID == courseID
	}), nil
}

// Leaderboard groups attempts by (user, course), sums scores, orders by the
// total descending and truncates. Ties break on user ID then course ID so the
// ranking is deterministic.
func (s *Store) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rankLocked(func(domain.TestAttempt) bool { return true }, limit), nil
}

// CourseLeaderboard is the unbounded per-course variant of the same pipeline.
func (s *Store) CourseLeaderboard(_ context.Context, courseID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rankLocked(func(a domain.TestAttempt) bool { return a.CourseID == courseID }, 0), nil
}

func (s *Store) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.Stats{
		TotalUsers:   len(s.users),
		TotalCourses: len(s.courses),
		TotalMCQs:    len(s.mcqs),
		TotalTests:   len(s.attempts),
	}
	if len(s.attempts) == 0 {
		return stats, nil
	}
	sum := 0
	for _, attempt := range s.attempts {
		sum += attempt.Score
	}
	stats.AverageScore = float64(sum) / float64(len(s.attempts))
	return stats, nil
}

func (s *Store) CourseAggregates(_ context.Context) ([]domain.CourseAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type agg struct {
		sum   int
		count int
	}
	byCourse := make(map[string]*agg)
	for _, attempt := range s.attempts {
		a, ok := byCourse[attempt.CourseID]
		if !ok {
			a = &agg{}
			byCourse[attempt.CourseID] = a
		}
		a.sum += attempt.Score
		a.count++
	}
	aggregates := make([]domain.CourseAggregate, 0, len(byCourse))
	for _, course := range s.sortedCoursesLocked() {
		a, ok := byCourse[course.ID]
		if !ok {
			continue
		}
		aggregates = append(aggregates, domain.CourseAggregate{
			Course:       course,
			AverageScore: float64(a.sum) / float64(a.count),
			TotalTests:   a.count,
		})
	}
	return aggregates, nil
}

type groupKey struct {
	userID   string
	courseID string
}

func (s *Store) rankLocked(match func(domain.TestAttempt) bool, limit int) []domain.LeaderboardEntry {
	totals := make(map[groupKey]int)
	for _, attempt := range s.attempts {
		if match(attempt) {
			totals[groupKey{attempt.UserID, attempt.CourseID}] += attempt.Score
		}
	}

	keys := make([]groupKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		if keys[i].userID != keys[j].userID {
			return keys[i].userID < keys[j].userID
		}
		return keys[i].courseID < keys[j].courseID
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(keys))
	for _, key := range keys {
		user, userOK := s.users[key.userID]
		course, courseOK := s.courses[key.courseID]
		if !userOK || !courseOK {
			// Dangling reference: drop the group rather than emit a
			// half-joined row.
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			User:       user,
			Course:     course,
			TotalScore: totals[key],
		})
	}
	return entries
}

func (s *Store) filterAttempts(match func(domain.TestAttempt) bool) []domain.AttemptDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var details []domain.AttemptDetail
	for _, attempt := range s.attempts {
		if !match(attempt) {
			continue
		}
		detail := domain.AttemptDetail{TestAttempt: attempt}
		if user, ok := s.users[attempt.UserID]; ok {
			u := user
			detail.User = &u
		}
		if course, ok := s.courses[attempt.CourseID]; ok {
			c := course
			detail.Course = &c
		}
		details = append(details, detail)
	}
	return details
}

func (s *Store) sortedCoursesLocked() []domain.Course {
	courses := make([]domain.Course, 0, len(s.courses))
	for _, course := range s.courses {
		courses = append(courses, course)
	}
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.Before(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	return courses
}
