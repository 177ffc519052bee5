package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lms-service/internal/domain"
)

// AggregateStore runs the derived-view queries as raw SQL over a pgx pool.
// The group / sort / limit / join pipeline is pushed down to Postgres instead
// of being materialized in process.
type AggregateStore struct {
	pool *pgxpool.Pool
}

func NewAggregateStore(pool *pgxpool.Pool) *AggregateStore {
	return &AggregateStore{pool: pool}
}

const leaderboardQuery = `
SELECT u.id, u.first_name, u.last_name, u.email, u.created_at,
       c.id, c.name, c.description, c.duration, c.instructor, c.category, c.image_url, c.created_at,
       SUM(ta.score) AS total_score
FROM test_attempts ta
JOIN users u ON u.id = ta.user_id
JOIN courses c ON c.id = ta.course_id
%s
GROUP BY u.id, c.id
ORDER BY total_score DESC, u.id ASC, c.id ASC
%s`

// Leaderboard sums scores per (user, course) group across all attempts and
// returns the top groups with joined display data. Ties break on user ID
// then course ID.
func (s *AggregateStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := fmt.Sprintf(leaderboardQuery, "", "LIMIT $1")
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()
	return scanLeaderboard(rows)
}

// CourseLeaderboard is the unbounded per-course variant of the same pipeline.
func (s *AggregateStore) CourseLeaderboard(ctx context.Context, courseID string) ([]domain.LeaderboardEntry, error) {
	query := fmt.Sprintf(leaderboardQuery, "WHERE ta.course_id = $1", "")
	rows, err := s.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("course leaderboard query: %w", err)
	}
	defer rows.Close()
	return scanLeaderboard(rows)
}

// Stats collects the global counters and the absolute-count mean score.
// COALESCE pins the mean to 0 when no attempts exist.
func (s *AggregateStore) Stats(ctx context.Context) (domain.Stats, error) {
	const query = `
SELECT (SELECT COUNT(*) FROM users),
       (SELECT COUNT(*) FROM courses),
       (SELECT COUNT(*) FROM mcqs),
       (SELECT COUNT(*) FROM test_attempts),
       COALESCE((SELECT AVG(score)::float8 FROM test_attempts), 0)`

	var stats domain.Stats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalCourses,
		&stats.TotalMCQs,
		&stats.TotalTests,
		&stats.AverageScore,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats query: %w", err)
	}
	return stats, nil
}

// CourseAggregates averages scores per course across all attempts.
func (s *AggregateStore) CourseAggregates(ctx context.Context) ([]domain.CourseAggregate, error) {
	const query = `
SELECT c.id, c.name, c.description, c.duration, c.instructor, c.category, c.image_url, c.created_at,
       AVG(ta.score)::float8 AS average_score,
       COUNT(*) AS total_tests
FROM test_attempts ta
JOIN courses c ON c.id = ta.course_id
GROUP BY c.id
ORDER BY c.created_at ASC, c.id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("course aggregates query: %w", err)
	}
	defer rows.Close()

	aggregates := []domain.CourseAggregate{}
	for rows.Next() {
		var agg domain.CourseAggregate
		err := rows.Scan(
			&agg.Course.ID, &agg.Course.Name, &agg.Course.Description, &agg.Course.Duration,
			&agg.Course.Instructor, &agg.Course.Category, &agg.Course.ImageURL, &agg.Course.CreatedAt,
			&agg.AverageScore, &agg.TotalTests,
		)
		if err != nil {
			return nil, fmt.Errorf("scan course aggregate: %w", err)
		}
		aggregates = append(aggregates, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("course aggregates rows: %w", err)
	}
	return aggregates, nil
}

func scanLeaderboard(rows pgx.Rows) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var entry domain.LeaderboardEntry
		err := rows.Scan(
			&entry.User.ID, &entry.User.FirstName, &entry.User.LastName, &entry.User.Email, &entry.User.CreatedAt,
			&entry.Course.ID, &entry.Course.Name, &entry.Course.Description, &entry.Course.Duration,
			&entry.Course.Instructor, &entry.Course.Category, &entry.Course.ImageURL, &entry.Course.CreatedAt,
			&entry.TotalScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard rows: %w", err)
	}
	return entries, nil
}
