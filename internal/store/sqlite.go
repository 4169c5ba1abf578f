package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It covers the
// CRUD surface for local development; the scoring, benchmark and
// recommendation computations require the Postgres driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	email          TEXT NOT NULL UNIQUE,
	organisation   TEXT NOT NULL DEFAULT '',
	role           TEXT NOT NULL DEFAULT '',
	sector         TEXT NOT NULL,
	employee_count TEXT NOT NULL DEFAULT '',
	revenue        TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS classifications (
	user_id     TEXT PRIMARY KEY REFERENCES users(id),
	tier        TEXT NOT NULL,
	assigned_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id             INTEGER PRIMARY KEY,
	text           TEXT NOT NULL,
	classification TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	answer_type    TEXT NOT NULL,
	sector         TEXT
);

CREATE TABLE IF NOT EXISTS scoring_rules (
	id           INTEGER PRIMARY KEY,
	question_id  INTEGER NOT NULL REFERENCES questions(id),
	answer_value TEXT NOT NULL,
	match_type   TEXT NOT NULL DEFAULT 'exact',
	score_impact REAL
);

CREATE TABLE IF NOT EXISTS responses (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      TEXT NOT NULL REFERENCES users(id),
	question_id  INTEGER NOT NULL REFERENCES questions(id),
	answer_value TEXT,
	answer_text  TEXT,
	category     TEXT,
	submitted_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS risk_levels (
	id        INTEGER PRIMARY KEY,
	label     TEXT NOT NULL,
	min_score REAL NOT NULL,
	max_score REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_responses_user_id ON responses(user_id);
CREATE INDEX IF NOT EXISTS idx_scoring_rules_question_id ON scoring_rules(question_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) (*model.User, error) {
	if user.Email == "" || user.Sector == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "sqlite: user email and sector are required")
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, organisation, role, sector, employee_count, revenue, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Organisation, user.Role,
		user.Sector, user.EmployeeCount, user.Revenue, user.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert user")
	}
	return &user, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, organisation, role, sector, employee_count, revenue, created_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Organisation, &u.Role, &u.Sector, &u.EmployeeCount, &u.Revenue, &createdAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "sqlite: user %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get user %s", id)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		u.CreatedAt = t
	}
	return &u, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	query := `SELECT id, text, classification, category, answer_type, COALESCE(sector, '')
	          FROM questions WHERE 1=1`
	var args []any

	if filter.Classification != "" {
		query += ` AND classification = ?`
		args = append(args, string(filter.Classification))
	}
	if filter.Sector != "" {
		query += ` AND (sector IS NULL OR sector = ?)`
		args = append(args, filter.Sector)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Classification, &q.Category, &q.AnswerType, &q.Sector); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan question")
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate questions")
	}
	return questions, nil
}

func (s *SQLiteStore) InsertResponses(ctx context.Context, responses []model.Response) error {
	if len(responses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range responses {
		if r.UserID == "" || r.QuestionID == 0 {
			return eris.Wrap(model.ErrInvalidInput, "sqlite: response requires user_id and question_id")
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO responses (user_id, question_id, answer_value, answer_text, category)
			 VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))`,
			r.UserID, r.QuestionID, r.AnswerValue, r.AnswerText, r.Category,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert response for question %d", r.QuestionID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit responses")
}

func (s *SQLiteStore) ListRiskLevels(ctx context.Context) ([]model.RiskLevel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, min_score, max_score FROM risk_levels ORDER BY min_score`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list risk levels")
	}
	defer rows.Close()

	var levels []model.RiskLevel
	for rows.Next() {
		var l model.RiskLevel
		if err := rows.Scan(&l.ID, &l.Label, &l.MinScore, &l.MaxScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan risk level")
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate risk levels")
	}
	return levels, nil
}
