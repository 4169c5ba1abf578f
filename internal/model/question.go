package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// AnswerType describes how a question is answered.
type AnswerType string

const (
	AnswerYesNo          AnswerType = "yes_no"
	AnswerText           AnswerType = "text"
	AnswerNumeric        AnswerType = "numeric"
	AnswerMultipleChoice AnswerType = "multiple_choice"
)

// ParseAnswerType converts a string into an AnswerType.
func ParseAnswerType(s string) (AnswerType, error) {
	switch strings.ToLower(s) {
	case "yes_no", "yesno", "yes/no":
		return AnswerYesNo, nil
	case "text":
		return AnswerText, nil
	case "numeric":
		return AnswerNumeric, nil
	case "multiple_choice", "multiple-choice":
		return AnswerMultipleChoice, nil
	default:
		return "", eris.Wrapf(ErrInvalidInput, "unknown answer type %q", s)
	}
}

// Classification scopes a question to a regulatory audience.
type Classification string

const (
	ClassEssential      Classification = "essential"
	ClassImportant      Classification = "important"
	ClassSectorSpecific Classification = "sector_specific"
)

// ParseClassification converts a string into a question Classification.
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(s) {
	case "essential":
		return ClassEssential, nil
	case "important":
		return ClassImportant, nil
	case "sector_specific", "sector-specific":
		return ClassSectorSpecific, nil
	default:
		return "", eris.Wrapf(ErrInvalidInput, "unknown classification %q", s)
	}
}

// Question is static admin-managed reference data.
type Question struct {
	ID             int64          `json:"id"`
	Text           string         `json:"text"`
	Classification Classification `json:"classification"`
	Category       string         `json:"category"`
	AnswerType     AnswerType     `json:"answer_type"`
	Sector         string         `json:"sector,omitempty"` // empty = all sectors
}

// MatchType selects how a scoring rule matches a response.
type MatchType string

const (
	// MatchExact compares the rule value against a discrete answer value.
	MatchExact MatchType = "exact"
	// MatchKeyword treats the rule value as a case-sensitive substring
	// of free-text responses.
	MatchKeyword MatchType = "keyword"
)

// ScoringRule maps a (question, answer or keyword) pair to a score
// contribution. Multiple rules may match one response; contributions sum.
type ScoringRule struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"question_id"`
	AnswerValue string    `json:"answer_value"`
	MatchType   MatchType `json:"match_type"`
	ScoreImpact float64   `json:"score_impact"`
}

// Response is one submitted answer. Responses are append-only: a repeat
// submission inserts new rows rather than updating existing ones.
type Response struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	QuestionID  int64  `json:"question_id"`
	AnswerValue string `json:"answer_value,omitempty"`
	AnswerText  string `json:"answer_text,omitempty"`
	Category    string `json:"category"`
}
