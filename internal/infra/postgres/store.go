package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"lms-service/internal/domain"
)

// uniqueViolation is the Postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

// Store is the bun-backed implementation of the CRUD repositories.
// Aggregation queries live in AggregateStore.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	record := userFromDomain(*user)
	if _, err := s.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	var record userRecord
	err := s.db.NewSelect().Model(&record).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return record.toDomain(), nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var record userRecord
	err := s.db.NewSelect().Model(&record).Where("u.email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return record.toDomain(), nil
}

func (s *Store) UserByName(ctx context.Context, firstName, lastName string) (domain.User, error) {
	var record userRecord
	err := s.db.NewSelect().Model(&record).
		Where("u.first_name = ?", firstName).
		Where("u.last_name = ?", lastName).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return record.toDomain(), nil
}

func (s *Store) CreateCourse(ctx context.Context, course *domain.Course) error {
	record := courseFromDomain(*course)
	if _, err := s.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (s *Store) Courses(ctx context.Context) ([]domain.Course, error) {
	var records []courseRecord
	err := s.db.NewSelect().Model(&records).
		Order("c.created_at ASC", "c.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	return coursesToDomain(records), nil
}

func (s *Store) RecentCourses(ctx context.Context, limit int) ([]domain.Course, error) {
	var records []courseRecord
	err := s.db.NewSelect().Model(&records).
		Order("c.created_at DESC", "c.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select recent courses: %w", err)
	}
	return coursesToDomain(records), nil
}

func (s *Store) CourseByID(ctx context.Context, id string) (domain.Course, error) {
	var record courseRecord
	err := s.db.NewSelect().Model(&record).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("select course: %w", err)
	}
	return record.toDomain(), nil
}

// DeleteCourse removes a course; the schema cascades the delete to its MCQs
// and attempts.
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*courseRecord)(nil)).Where("c.id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func (s *Store) CreateMCQ(ctx context.Context, mcq *domain.MCQ) error {
	record := mcqFromDomain(*mcq)
	if _, err := s.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return fmt.Errorf("insert mcq: %w", err)
	}
	return nil
}

func (s *Store) UpdateMCQ(ctx context.Context, mcq domain.MCQ) (domain.MCQ, error) {
	record := mcqFromDomain(mcq)
	res, err := s.db.NewUpdate().Model(&record).
		Column("course_id", "prompt", "options", "correct_options", "is_multiple_answer").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.MCQ{}, fmt.Errorf("update mcq: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.MCQ{}, fmt.Errorf("update mcq: %w", err)
	}
	if affected == 0 {
		return domain.MCQ{}, domain.ErrMCQNotFound
	}
	return mcq, nil
}

func (s *Store) DeleteMCQ(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*mcqRecord)(nil)).Where("m.id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete mcq: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mcq: %w", err)
	}
	if affected == 0 {
		return domain.ErrMCQNotFound
	}
	return nil
}

func (s *Store) MCQByID(ctx context.Context, id string) (domain.MCQ, error) {
	var record mcqRecord
	err := s.db.NewSelect().Model(&record).Where("m.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MCQ{}, domain.ErrMCQNotFound
	}
	if err != nil {
		return domain.MCQ{}, fmt.Errorf("select mcq: %w", err)
	}
	return record.toDomain(), nil
}

func (s *Store) MCQs(ctx context.Context) ([]domain.MCQ, error) {
	var records []mcqRecord
	err := s.db.NewSelect().Model(&records).Order("m.position ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select mcqs: %w", err)
	}
	return mcqsToDomain(records), nil
}

// CourseMCQs returns the course's bank in stored order; test submissions
// grade a prefix of this sequence.
func (s *Store) CourseMCQs(ctx context.Context, courseID string) ([]domain.MCQ, error) {
	var records []mcqRecord
	err := s.db.NewSelect().Model(&records).
		Where("m.course_id = ?", courseID).
		Order("m.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select course mcqs: %w", err)
	}
	return mcqsToDomain(records), nil
}

func (s *Store) GroupedMCQs(ctx context.Context) ([]domain.CourseMCQGroup, error) {
	var records []mcqRecord
	err := s.db.NewSelect().Model(&records).
		Relation("Course").
		Order("m.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select grouped mcqs: %w", err)
	}

	index := make(map[string]int)
	var groups []domain.CourseMCQGroup
	for _, record := range records {
		if record.Course == nil {
			continue
		}
		i, ok := index[record.CourseID]
		if !ok {
			i = len(groups)
			index[record.CourseID] = i
			groups = append(groups, domain.CourseMCQGroup{Course: record.Course.toDomain()})
		}
		groups[i].MCQs = append(groups[i].MCQs, record.toDomain())
	}
	return groups, nil
}

func (s *Store) CreateAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	record := attemptRecord{
		ID:             attempt.ID,
		UserID:         attempt.UserID,
		CourseID:       attempt.CourseID,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		CreatedAt:      attempt.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) Attempts(ctx context.Context) ([]domain.AttemptDetail, error) {
	return s.selectAttempts(ctx, nil)
}

func (s *Store) UserAttempts(ctx context.Context, userID string) ([]domain.AttemptDetail, error) {
	return s.selectAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ta.user_id = ?", userID)
	})
}

func (s *Store) CourseAttempts(ctx context.Context, courseID string) ([]domain.AttemptDetail, error) {
	return s.selectAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ta.course_id = ?", courseID)
	})
}

func (s *Store) UserCourseAttempts(ctx context.Context, userID, courseID string) ([]domain.AttemptDetail, error) {
	return s.selectAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ta.user_id = ?", userID).Where("ta.course_id = ?", courseID)
	})
}

func (s *Store) selectAttempts(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.AttemptDetail, error) {
	var records []attemptRecord
	q := s.db.NewSelect().Model(&records).
		Relation("User").
		Relation("Course").
		Order("ta.created_at ASC", "ta.id ASC")
	if filter != nil {
		q = filter(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	details := make([]domain.AttemptDetail, 0, len(records))
	for _, record := range records {
		details = append(details, record.toDetail())
	}
	return details, nil
}

func coursesToDomain(records []courseRecord) []domain.Course {
	courses := make([]domain.Course, 0, len(records))
	for _, record := range records {
		courses = append(courses, record.toDomain())
	}
	return courses
}

func mcqsToDomain(records []mcqRecord) []domain.MCQ {
	mcqs := make([]domain.MCQ, 0, len(records))
	for _, record := range records {
		mcqs = append(mcqs, record.toDomain())
	}
	return mcqs
}
