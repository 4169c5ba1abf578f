// Package store provides the persistence layer: a Store interface over
// the assessment schema with Postgres and SQLite implementations.
// The computation packages (scoring, benchmark, recommend) query
// Postgres directly through db.Pool; Store covers the CRUD surface the
// HTTP layer and CLI need.
package store

import (
	"context"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// QuestionFilter narrows ListQuestions.
type QuestionFilter struct {
	Sector         string               `json:"sector,omitempty"`
	Classification model.Classification `json:"classification,omitempty"`
}

// Store defines the persistence interface for the assessment service.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	// Questions
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error)

	// Responses (append-only; a resubmission inserts new rows)
	InsertResponses(ctx context.Context, responses []model.Response) error

	// Reference data
	ListRiskLevels(ctx context.Context) ([]model.RiskLevel, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
