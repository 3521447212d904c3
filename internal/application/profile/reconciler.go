package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"go.uber.org/zap"
)

const progressEvery = 50

type profileFinder interface {
	FindProfileByID(ctx context.Context, id string) (*domain.Profile, error)
}

// ProgressFunc receives parse progress; it may be nil.
type ProgressFunc func(domain.ParseProgress)

// Reconciler turns an uploaded file into a ProcessingResult: every row is
// validated and rows carrying an ID are checked against the store.
type Reconciler struct {
	profiles profileFinder
	logger   *zap.Logger
}

func NewReconciler(profiles profileFinder, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{profiles: profiles, logger: logger}
}

// ProcessFile reads every row of src. A malformed file fails as a whole and
// returns no partial result. When resolver is not nil the references of the
// accepted rows are resolved once ahead of the batch stage.
func (rc *Reconciler) ProcessFile(ctx context.Context, src RowReader, resolver *Resolver, onProgress ProgressFunc) (domain.ProcessingResult, error) {
	report := func(p domain.ParseProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(domain.ParseProgress{Stage: domain.StageInit, Message: "Reading file"})

	var (
		result   domain.ProcessingResult
		accepted []domain.ImportRow
	)
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return domain.ProcessingResult{}, err
		}
		raw := src.Row()
		rowNumber := raw.Index + domain.HeaderOffset

		row, errs := domain.ParseImportRow(rowNumber, raw.Values)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, domain.ValidationError{Row: rowNumber, Errors: errs})
		} else {
			accepted = append(accepted, row)
		}

		if (raw.Index+1)%progressEvery == 0 {
			total, pct := src.Estimate()
			report(domain.ParseProgress{
				Stage:      domain.StageParsing,
				CurrentRow: raw.Index + 1,
				TotalRows:  total,
				Message:    fmt.Sprintf("Parsed %d rows", raw.Index+1),
				Percentage: pct,
			})
		}
	}
	if err := src.Err(); err != nil {
		return domain.ProcessingResult{}, err
	}

	totalRows := len(accepted) + len(result.Errors)
	report(domain.ParseProgress{
		Stage:      domain.StageValidating,
		CurrentRow: totalRows,
		TotalRows:  totalRows,
		Message:    fmt.Sprintf("Validated %d rows, %d invalid", totalRows, len(result.Errors)),
		Percentage: 100,
	})

	withID := 0
	for _, row := range accepted {
		if row.HasID() {
			withID++
		}
	}

	verified := 0
	for _, row := range accepted {
		if !row.HasID() {
			result.NewUsers = append(result.NewUsers, row)
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.ProcessingResult{}, err
		}

		if reason := rc.verifyIdentity(ctx, row); reason != "" {
			result.Errors = append(result.Errors, domain.ValidationError{Row: row.Row, Errors: []string{reason}})
		} else {
			result.ExistingUsers = append(result.ExistingUsers, row)
		}

		verified++
		report(domain.ParseProgress{
			Stage:      domain.StageVerifying,
			CurrentRow: verified,
			TotalRows:  withID,
			Message:    fmt.Sprintf("Verified %d of %d existing users", verified, withID),
			Percentage: float64(verified) / float64(withID) * 100,
		})
	}

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Row < result.Errors[j].Row
	})

	if resolver != nil {
		report(domain.ParseProgress{
			Stage:      domain.StageCheckingEntities,
			CurrentRow: 0,
			TotalRows:  len(result.NewUsers) + len(result.ExistingUsers),
			Message:    "Checking referenced entities",
		})
		resolver.Warm(ctx, result.NewUsers)
		resolver.Warm(ctx, result.ExistingUsers)
	}

	report(domain.ParseProgress{
		Stage:      domain.StageComplete,
		CurrentRow: totalRows,
		TotalRows:  totalRows,
		Message:    fmt.Sprintf("%d new, %d existing, %d errors", len(result.NewUsers), len(result.ExistingUsers), len(result.Errors)),
		Percentage: 100,
	})

	rc.logger.Info("import file reconciled",
		zap.Int("rows", totalRows),
		zap.Int("new", len(result.NewUsers)),
		zap.Int("existing", len(result.ExistingUsers)),
		zap.Int("invalid", len(result.Errors)))

	return result, nil
}

// verifyIdentity returns an empty string when the stored profile for the
// row's ID carries the row's email.
func (rc *Reconciler) verifyIdentity(ctx context.Context, row domain.ImportRow) string {
	stored, err := rc.profiles.FindProfileByID(ctx, *row.ID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return domain.MismatchMessage
		}
		rc.logger.Warn("profile verification failed", zap.Int("row", row.Row), zap.Error(err))
		return "ID could not be verified: " + err.Error()
	}
	if stored == nil || !strings.EqualFold(strings.TrimSpace(stored.Email), row.Email) {
		return domain.MismatchMessage
	}
	return ""
}
