package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"lms-service/internal/domain"
)

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	FirstName    string    `bun:"first_name,notnull"`
	LastName     string    `bun:"last_name,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type courseRecord struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
	Duration    string    `bun:"duration,notnull"`
	Instructor  string    `bun:"instructor,notnull"`
	Category    string    `bun:"category"`
	ImageURL    string    `bun:"image_url"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type mcqRecord struct {
	bun.BaseModel `bun:"table:mcqs,alias:m"`

	ID               string   `bun:"id,pk"`
	CourseID         string   `bun:"course_id,notnull"`
	Prompt           string   `bun:"prompt,notnull"`
	Options          []string `bun:"options,array"`
	CorrectOptions   []int    `bun:"correct_options,array"`
	IsMultipleAnswer bool     `bun:"is_multiple_answer"`
	Position         int64    `bun:"position,scanonly"`

	Course *courseRecord `bun:"rel:belongs-to,join:course_id=id"`
}

type attemptRecord struct {
	bun.BaseModel `bun:"table:test_attempts,alias:ta"`

	ID             string    `bun:"id,pk"`
	UserID         string    `bun:"user_id,notnull"`
	CourseID       string    `bun:"course_id,notnull"`
	Score          int       `bun:"score,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`

	User   *userRecord   `bun:"rel:belongs-to,join:user_id=id"`
	Course *courseRecord `bun:"rel:belongs-to,join:course_id=id"`
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func userFromDomain(u domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (r courseRecord) toDomain() domain.Course {
	return domain.Course{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Duration:    r.Duration,
		Instructor:  r.Instructor,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
	}
}

func courseFromDomain(c domain.Course) courseRecord {
	return courseRecord{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Duration:    c.Duration,
		Instructor:  c.Instructor,
		Category:    c.Category,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
	}
}

func (r mcqRecord) toDomain() domain.MCQ {
	return domain.MCQ{
		ID:               r.ID,
		CourseID:         r.CourseID,
		Prompt:           r.Prompt,
		Options:          r.Options,
		CorrectOptions:   r.CorrectOptions,
		IsMultipleAnswer: r.IsMultipleAnswer,
	}
}

func mcqFromDomain(m domain.MCQ) mcqRecord {
	return mcqRecord{
		ID:               m.ID,
		CourseID:         m.CourseID,
		Prompt:           m.Prompt,
		Options:          m.Options,
		CorrectOptions:   m.CorrectOptions,
		IsMultipleAnswer: m.IsMultipleAnswer,
	}
}

func (r attemptRecord) toDomain() domain.TestAttempt {
	return domain.TestAttempt{
		ID:             r.ID,
		UserID:         r.UserID,
		CourseID:       r.CourseID,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		CreatedAt:      r.CreatedAt,
	}
}

func (r attemptRecord) toDetail() domain.AttemptDetail {
	detail := domain.AttemptDetail{TestAttempt: r.toDomain()}
	if r.User != nil {
		user := r.User.toDomain()
		detail.User = &user
	}
	if r.Course != nil {
		course := r.Course.toDomain()
		detail.Course = &course
	}
	return detail
}
