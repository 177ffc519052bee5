package domain

import "time"

// User is a registered account. Passwords are stored as bcrypt hashes and
// never serialized back to clients.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Course groups a bank of MCQs under one instructor-authored unit.
type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Duration    string    `json:"duration"`
	Instructor  string    `json:"instructor"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MCQ is a multiple-choice question belonging to exactly one course.
// CorrectOptions holds indices into Options; when IsMultipleAnswer is false
// the set lists the acceptable single answers.
type MCQ struct {
	ID               string   `json:"id"`
	CourseID         string   `json:"courseId"`
	Prompt           string   `json:"question"`
	Options          []string `json:"options"`
	CorrectOptions   []int    `json:"correctOptions"`
	IsMultipleAnswer bool     `json:"isMultipleAnswer"`
}

// Validate checks the structural invariants enforced on MCQ writes: at least
// two options, a non-empty correct set, and every correct index in range.
func (m MCQ) Validate() error {
	if len(m.Options) < 2 {
		return ErrTooFewOptions
	}
	if len(m.CorrectOptions) == 0 {
		return ErrNoCorrectOption
	}
	for _, idx := range m.CorrectOptions {
		if idx < 0 || idx >= len(m.Options) {
			return ErrCorrectOptionRange
		}
	}
	return nil
}

// TestAttempt records one scored submission. Immutable once written.
type TestAttempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	CourseID       string    `json:"courseId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AttemptDetail is a TestAttempt joined with its user and course display data.
type AttemptDetail struct {
	TestAttempt
	User   *User   `json:"user,omitempty"`
	Course *Course `json:"course,omitempty"`
}

// LeaderboardEntry is one (user, course) group with its cumulative summed
// score across every attempt recorded for the pair.
type LeaderboardEntry struct {
	User       User   `json:"user"`
	Course     Course `json:"course"`
	TotalScore int    `json:"totalScore"`
}

// Stats is the global snapshot served by the stats endpoint. AverageScore is
// an absolute-count mean over attempt scores, never normalized to a
// percentage, and is 0 when no attempts exist.
type Stats struct {
	TotalUsers   int     `json:"totalUsers"`
	TotalCourses int     `json:"totalCourses"`
	TotalMCQs    int     `json:"totalMcqs"`
	TotalTests   int     `json:"totalTests"`
	AverageScore float64 `json:"averageScore"`
}

// CourseAggregate summarizes attempts for one course.
type CourseAggregate struct {
	Course       Course  `json:"course"`
	AverageScore float64 `json:"averageScore"`
	TotalTests   int     `json:"totalTests"`
}

// CourseMCQGroup bundles a course with its question bank.
type CourseMCQGroup struct {
	Course Course `json:"course"`
	MCQs   []MCQ  `json:"mcqs"`
}

// UserRef identifies the test taker on attempt creation. ID wins when set;
// the first/last name pair is kept for compatibility with older clients.
type UserRef struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}
