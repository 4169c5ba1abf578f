// Package seed loads the questionnaire catalog (questions, scoring
// rules, risk levels, recommendations) from YAML reference files and
// bulk-upserts it into the database. Seeding is idempotent: re-running
// it overwrites reference rows in place.
package seed

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// Catalog is the full set of seedable reference data.
type Catalog struct {
	Questions       []Question       `yaml:"questions"`
	ScoringRules    []ScoringRule    `yaml:"scoring_rules"`
	RiskLevels      []RiskLevel      `yaml:"risk_levels"`
	Recommendations []Recommendation `yaml:"recommendations"`
}

// Question is the YAML shape of a questionnaire entry.
type Question struct {
	ID             int64  `yaml:"id"`
	Text           string `yaml:"text"`
	Classification string `yaml:"classification"`
	Category       string `yaml:"category"`
	AnswerType     string `yaml:"answer_type"`
	Sector         string `yaml:"sector"`
}

// ScoringRule is the YAML shape of a scoring rule.
type ScoringRule struct {
	ID          int64   `yaml:"id"`
	QuestionID  int64   `yaml:"question_id"`
	AnswerValue string  `yaml:"answer_value"`
	MatchType   string  `yaml:"match_type"`
	ScoreImpact float64 `yaml:"score_impact"`
}

// RiskLevel is the YAML shape of a risk-level band.
type RiskLevel struct {
	ID       int64   `yaml:"id"`
	Label    string  `yaml:"label"`
	MinScore float64 `yaml:"min_score"`
	MaxScore float64 `yaml:"max_score"`
}

// Recommendation is the YAML shape of a recommendation entry.
type Recommendation struct {
	ID         int64  `yaml:"id"`
	Category   string `yaml:"category"`
	QuestionID *int64 `yaml:"question_id"`
	Sector     string `yaml:"sector"`
	RiskLevel  string `yaml:"risk_level"`
	Text       string `yaml:"text"`
	Impact     string `yaml:"impact"`
}

// catalogFiles maps seed directory filenames to catalog sections.
var catalogFiles = []string{
	"questions.yaml",
	"scoring_rules.yaml",
	"risk_levels.yaml",
	"recommendations.yaml",
}

// Load reads every catalog file present in dir. Missing files are
// skipped; a directory with no catalog files at all is an error.
func Load(dir string) (*Catalog, error) {
	var catalog Catalog
	found := 0

	for _, name := range catalogFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, eris.Wrapf(err, "seed: read %s", path)
		}
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, eris.Wrapf(err, "seed: parse %s", path)
		}
		found++
	}

	if found == 0 {
		return nil, eris.Errorf("seed: no catalog files found in %s", dir)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks enum fields and referential integrity inside the catalog.
func (c *Catalog) Validate() error {
	questionIDs := make(map[int64]bool, len(c.Questions))
	for _, q := range c.Questions {
		if q.ID == 0 || q.Text == "" {
			return eris.Wrapf(model.ErrInvalidInput, "seed: question %d requires id and text", q.ID)
		}
		if _, err := model.ParseClassification(q.Classification); err != nil {
			return eris.Wrapf(err, "seed: question %d", q.ID)
		}
		if _, err := model.ParseAnswerType(q.AnswerType); err != nil {
			return eris.Wrapf(err, "seed: question %d", q.ID)
		}
		questionIDs[q.ID] = true
	}

	for _, r := range c.ScoringRules {
		if r.MatchType != string(model.MatchExact) && r.MatchType != string(model.MatchKeyword) {
			return eris.Wrapf(model.ErrInvalidInput, "seed: rule %d has unknown match type %q", r.ID, r.MatchType)
		}
		if len(c.Questions) > 0 && !questionIDs[r.QuestionID] {
			return eris.Wrapf(model.ErrInvalidInput, "seed: rule %d references unknown question %d", r.ID, r.QuestionID)
		}
	}

	for _, l := range c.RiskLevels {
		if l.Label == "" {
			return eris.Wrapf(model.ErrInvalidInput, "seed: risk level %d requires label", l.ID)
		}
		if l.MinScore > l.MaxScore {
			return eris.Wrapf(model.ErrInvalidInput, "seed: risk level %q has min above max", l.Label)
		}
	}

	for _, rec := range c.Recommendations {
		if rec.Text == "" {
			return eris.Wrapf(model.ErrInvalidInput, "seed: recommendation %d requires text", rec.ID)
		}
	}

	return nil
}

// Apply upserts the catalog into the database in dependency order.
func Apply(ctx context.Context, pool db.Pool, catalog *Catalog) error {
	if len(catalog.Questions) > 0 {
		rows := make([][]any, 0, len(catalog.Questions))
		for _, q := range catalog.Questions {
			rows = append(rows, []any{q.ID, q.Text, q.Classification, q.Category, q.AnswerType, nullable(q.Sector)})
		}
		n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        "questions",
			Columns:      []string{"id", "text", "classification", "category", "answer_type", "sector"},
			ConflictKeys: []string{"id"},
		}, rows)
		if err != nil {
			return err
		}
		zap.L().Info("seed: questions upserted", zap.Int64("rows", n))
	}

	if len(catalog.ScoringRules) > 0 {
		rows := make([][]any, 0, len(catalog.ScoringRules))
		for _, r := range catalog.ScoringRules {
			rows = append(rows, []any{r.ID, r.QuestionID, r.AnswerValue, r.MatchType, r.ScoreImpact})
		}
		n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        "scoring_rules",
			Columns:      []string{"id", "question_id", "answer_value", "match_type", "score_impact"},
			ConflictKeys: []string{"id"},
		}, rows)
		if err != nil {
			return err
		}
		zap.L().Info("seed: scoring rules upserted", zap.Int64("rows", n))
	}

	if len(catalog.RiskLevels) > 0 {
		rows := make([][]any, 0, len(catalog.RiskLevels))
		for _, l := range catalog.RiskLevels {
			rows = append(rows, []any{l.ID, l.Label, l.MinScore, l.MaxScore})
		}
		n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        "risk_levels",
			Columns:      []string{"id", "label", "min_score", "max_score"},
			ConflictKeys: []string{"id"},
		}, rows)
		if err != nil {
			return err
		}
		zap.L().Info("seed: risk levels upserted", zap.Int64("rows", n))
	}

	if len(catalog.Recommendations) > 0 {
		rows := make([][]any, 0, len(catalog.Recommendations))
		for _, rec := range catalog.Recommendations {
			rows = append(rows, []any{rec.ID, nullable(rec.Category), rec.QuestionID, nullable(rec.Sector), nullable(rec.RiskLevel), rec.Text, nullable(rec.Impact)})
		}
		n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        "recommendations",
			Columns:      []string{"id", "category", "question_id", "sector", "risk_level", "text", "impact"},
			ConflictKeys: []string{"id"},
		}, rows)
		if err != nil {
			return err
		}
		zap.L().Info("seed: recommendations upserted", zap.Int64("rows", n))
	}

	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
