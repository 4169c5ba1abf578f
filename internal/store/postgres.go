package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps
// ownership of the pool's lifecycle.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

// Pool returns the underlying database pool for the computation
// packages (scoring, benchmark, recommend) that need direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	email          TEXT NOT NULL UNIQUE,
	organisation   TEXT NOT NULL DEFAULT '',
	role           TEXT NOT NULL DEFAULT '',
	sector         TEXT NOT NULL,
	employee_count TEXT NOT NULL DEFAULT '',
	revenue        TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS classifications (
	user_id     TEXT PRIMARY KEY REFERENCES users(id),
	tier        TEXT NOT NULL,
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS questions (
	id             BIGINT PRIMARY KEY,
	text           TEXT NOT NULL,
	classification TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	answer_type    TEXT NOT NULL,
	sector         TEXT
);

CREATE TABLE IF NOT EXISTS scoring_rules (
	id           BIGINT PRIMARY KEY,
	question_id  BIGINT NOT NULL REFERENCES questions(id),
	answer_value TEXT NOT NULL,
	match_type   TEXT NOT NULL DEFAULT 'exact',
	score_impact DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS responses (
	id           BIGSERIAL PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	question_id  BIGINT NOT NULL REFERENCES questions(id),
	answer_value TEXT,
	answer_text  TEXT,
	category     TEXT,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS risk_levels (
	id        BIGINT PRIMARY KEY,
	label     TEXT NOT NULL,
	min_score DOUBLE PRECISION NOT NULL,
	max_score DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS risk_scores (
	user_id     TEXT PRIMARY KEY REFERENCES users(id),
	score       DOUBLE PRECISION NOT NULL,
	risk_level  TEXT NOT NULL,
	computed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sector_benchmarks (
	sector           TEXT PRIMARY KEY,
	internal_avg     DOUBLE PRECISION,
	external_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	blended_score    DOUBLE PRECISION,
	source_reference TEXT,
	justification    TEXT,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS benchmark_settings (
	id              INTEGER PRIMARY KEY,
	internal_weight DOUBLE PRECISION NOT NULL,
	external_weight DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
	id          BIGINT PRIMARY KEY,
	category    TEXT,
	question_id BIGINT REFERENCES questions(id),
	sector      TEXT,
	risk_level  TEXT,
	text        TEXT NOT NULL,
	impact      TEXT
);

CREATE INDEX IF NOT EXISTS idx_responses_user_id ON responses(user_id);
CREATE INDEX IF NOT EXISTS idx_responses_question_id ON responses(question_id);
CREATE INDEX IF NOT EXISTS idx_scoring_rules_question_id ON scoring_rules(question_id);
CREATE INDEX IF NOT EXISTS idx_questions_sector ON questions(sector);
CREATE INDEX IF NOT EXISTS idx_users_sector ON users(sector);
CREATE INDEX IF NOT EXISTS idx_recommendations_sector ON recommendations(sector);
CREATE INDEX IF NOT EXISTS idx_recommendations_category ON recommendations(category);

CREATE OR REPLACE VIEW category_scores AS
SELECT resp.user_id,
       resp.category,
       LEAST(SUM(COALESCE(sr.score_impact, 0)), 999.99) AS normalized_score
FROM responses resp
JOIN scoring_rules sr
  ON sr.question_id = resp.question_id
 AND (
       (sr.match_type = 'exact' AND sr.answer_value = resp.answer_value)
    OR (sr.match_type = 'keyword' AND resp.answer_text IS NOT NULL
        AND strpos(resp.answer_text, sr.answer_value) > 0)
     )
WHERE resp.category IS NOT NULL
GROUP BY resp.user_id, resp.category;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user model.User) (*model.User, error) {
	if user.Email == "" || user.Sector == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "postgres: user email and sector are required")
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, organisation, role, sector, employee_count, revenue, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Email, user.Organisation, user.Role,
		user.Sector, user.EmployeeCount, user.Revenue, user.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert user")
	}
	return &user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, organisation, role, sector, employee_count, revenue, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Organisation, &u.Role, &u.Sector, &u.EmployeeCount, &u.Revenue, &u.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: user %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get user %s", id)
	}
	return &u, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	query := `SELECT id, text, classification, category, answer_type, COALESCE(sector, '')
	          FROM questions WHERE 1=1`
	var args []any

	if filter.Classification != "" {
		args = append(args, string(filter.Classification))
		query += ` AND classification = $1`
	}
	if filter.Sector != "" {
		args = append(args, filter.Sector)
		if len(args) == 2 {
			query += ` AND (sector IS NULL OR sector = $2)`
		} else {
			query += ` AND (sector IS NULL OR sector = $1)`
		}
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Classification, &q.Category, &q.AnswerType, &q.Sector); err != nil {
			return nil, eris.Wrap(err, "postgres: scan question")
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate questions")
	}
	return questions, nil
}

func (s *PostgresStore) InsertResponses(ctx context.Context, responses []model.Response) error {
	if len(responses) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, r := range responses {
		if r.UserID == "" || r.QuestionID == 0 {
			return eris.Wrap(model.ErrInvalidInput, "postgres: response requires user_id and question_id")
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO responses (user_id, question_id, answer_value, answer_text, category)
			 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))`,
			r.UserID, r.QuestionID, r.AnswerValue, r.AnswerText, r.Category,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert response for question %d", r.QuestionID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit responses")
	}
	return nil
}

func (s *PostgresStore) ListRiskLevels(ctx context.Context) ([]model.RiskLevel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, min_score, max_score FROM risk_levels ORDER BY min_score`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list risk levels")
	}
	defer rows.Close()

	var levels []model.RiskLevel
	for rows.Next() {
		var l model.RiskLevel
		if err := rows.Scan(&l.ID, &l.Label, &l.MinScore, &l.MaxScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan risk level")
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate risk levels")
	}
	return levels, nil
}
