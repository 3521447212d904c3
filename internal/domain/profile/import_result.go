package profile

import "time"

// HeaderOffset converts a zero-based data row index into the row number
// shown to operators: one for the header, one for 1-based counting.
const HeaderOffset = 2

// MismatchMessage is reported for rows whose ID is unknown or belongs to a
// different email.
const MismatchMessage = "ID and email do not match or ID not found"

type ValidationError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// ProcessingResult is the reconciled content of one uploaded file.
type ProcessingResult struct {
	NewUsers      []ImportRow       `json:"new_users"`
	ExistingUsers []ImportRow       `json:"existing_users"`
	Errors        []ValidationError `json:"errors"`
}

// Total is the number of data rows the result was built from.
func (r ProcessingResult) Total() int {
	return len(r.NewUsers) + len(r.ExistingUsers) + len(r.Errors)
}

type ImportErrorType string

const (
	ImportErrorCreation ImportErrorType = "creation"
	ImportErrorUpdate   ImportErrorType = "update"
	ImportErrorRole     ImportErrorType = "role"
	ImportErrorSBU      ImportErrorType = "sbu"
)

type ImportError struct {
	Row     int               `json:"row"`
	Type    ImportErrorType   `json:"type"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

type BatchProgress struct {
	CurrentBatch           int           `json:"current_batch"`
	TotalBatches           int           `json:"total_batches"`
	Processed              int           `json:"processed"`
	Total                  int           `json:"total"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
	Errors                 []ImportError `json:"errors"`
}

type BatchSummary struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Cancelled  bool          `json:"cancelled"`
	Errors     []ImportError `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

type ParseStage string

const (
	StageInit             ParseStage = "init"
	StageParsing          ParseStage = "parsing"
	StageValidating       ParseStage = "validating"
	StageVerifying        ParseStage = "verifying"
	StageCheckingEntities ParseStage = "checking_entities"
	StageComplete         ParseStage = "complete"
)

type ParseProgress struct {
	Stage      ParseStage `json:"stage"`
	CurrentRow int        `json:"current_row"`
	TotalRows  int        `json:"total_rows"`
	Message    string     `json:"message"`
	Percentage float64    `json:"percentage"`
}
