package profile

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"go.uber.org/zap"
)

type RowKind string

const (
	RowKindNew      RowKind = "new"
	RowKindExisting RowKind = "existing"
)

// RowOutcome is the result of applying one row. A row with errors may still
// have been partly applied, e.g. profile updated but SBUs not assigned.
type RowOutcome struct {
	Row       int
	Kind      RowKind
	ProfileID string
	Errors    []domain.ImportError
}

func (o RowOutcome) Failed() bool {
	return len(o.Errors) > 0
}

type BatchProcessorConfig struct {
	BatchSize int
	// Passwords generates temporary passwords for new accounts.
	Passwords func() (string, error)
	Now       func() time.Time
}

// BatchProcessor applies a ProcessingResult to the store row by row: new
// users first, then existing users, each in file order.
type BatchProcessor struct {
	store    domain.ProfileStore
	resolver *Resolver
	cfg      BatchProcessorConfig
	logger   *zap.Logger
}

func NewBatchProcessor(store domain.ProfileStore, resolver *Resolver, cfg BatchProcessorConfig, logger *zap.Logger) *BatchProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Passwords == nil {
		cfg.Passwords = GenerateTemporaryPassword
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewResolver(store, logger)
	}
	return &BatchProcessor{
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Rows yields one outcome per row. When ctrl is cancelled or ctx is done the
// sequence ends with ErrOperationCancelled before the next row starts.
func (p *BatchProcessor) Rows(ctx context.Context, result domain.ProcessingResult, ctrl *Controller) iter.Seq2[RowOutcome, error] {
	if ctrl == nil {
		ctrl = NewController()
	}
	return func(yield func(RowOutcome, error) bool) {
		for _, row := range result.NewUsers {
			if err := ctrl.Wait(ctx); err != nil {
				yield(RowOutcome{}, err)
				return
			}
			if !yield(p.createUser(ctx, row), nil) {
				return
			}
		}
		for _, row := range result.ExistingUsers {
			if err := ctrl.Wait(ctx); err != nil {
				yield(RowOutcome{}, err)
				return
			}
			if !yield(p.updateUser(ctx, row), nil) {
				return
			}
		}
	}
}

// Run drains Rows, reporting progress after every row, and returns the final
// counters. A row counts as failed once however many of its sub-operations
// failed. On cancellation the summary so far is returned together with
// ErrOperationCancelled and no further progress is reported.
func (p *BatchProcessor) Run(ctx context.Context, result domain.ProcessingResult, ctrl *Controller, onProgress func(domain.BatchProgress)) (domain.BatchSummary, error) {
	total := len(result.NewUsers) + len(result.ExistingUsers)
	totalBatches := (total + p.cfg.BatchSize - 1) / p.cfg.BatchSize
	started := p.cfg.Now()

	var (
		errs       []domain.ImportError
		failedRows = make(map[int]struct{})
		processed  int
	)

	emit := func() {
		if onProgress == nil {
			return
		}
		currentBatch := 0
		if total > 0 {
			currentBatch = 1
		}
		if processed > 0 {
			currentBatch = (processed-1)/p.cfg.BatchSize + 1
		}
		var remaining time.Duration
		if processed > 0 {
			perRow := p.cfg.Now().Sub(started) / time.Duration(processed)
			remaining = perRow * time.Duration(total-processed)
		}
		onProgress(domain.BatchProgress{
			CurrentBatch:           currentBatch,
			TotalBatches:           totalBatches,
			Processed:              processed,
			Total:                  total,
			EstimatedTimeRemaining: remaining,
			Errors:                 slices.Clone(errs),
		})
	}

	summarize := func(cancelled bool) domain.BatchSummary {
		return domain.BatchSummary{
			Total:      total,
			Successful: processed - len(failedRows),
			Failed:     len(failedRows),
			Cancelled:  cancelled,
			Errors:     errs,
			Duration:   p.cfg.Now().Sub(started),
		}
	}

	emit()
	for outcome, err := range p.Rows(ctx, result, ctrl) {
		if err != nil {
			p.logger.Info("import batch cancelled", zap.Int("processed", processed), zap.Int("total", total))
			return summarize(true), err
		}
		processed++
		if outcome.Failed() {
			errs = append(errs, outcome.Errors...)
			failedRows[outcome.Row] = struct{}{}
		}
		emit()
	}

	summary := summarize(false)
	p.logger.Info("import batch finished",
		zap.Int("total", summary.Total),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *BatchProcessor) createUser(ctx context.Context, row domain.ImportRow) RowOutcome {
	out := RowOutcome{Row: row.Row, Kind: RowKindNew}

	password, err := p.cfg.Passwords()
	if err != nil {
		out.Errors = append(out.Errors, rowError(row, domain.ImportErrorCreation, "Failed to generate temporary password", err, nil))
		return out
	}

	id, err := p.store.CreateProfile(ctx, domain.NewProfile{
		Email:             row.Email,
		TemporaryPassword: password,
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		Role:              row.EffectiveRole(),
	})
	if err != nil {
		out.Errors = append(out.Errors, rowError(row, domain.ImportErrorCreation, "Failed to create user", err, nil))
		return out
	}
	out.ProfileID = id
	// later rows may name this user as their supervisor
	p.resolver.Forget(domain.EntitySupervisor, row.Email)

	if update := p.buildUpdate(ctx, row); !update.Empty() {
		if err := p.store.UpdateProfile(ctx, id, update); err != nil {
			out.Errors = append(out.Errors, rowError(row, domain.ImportErrorUpdate, "Failed to update profile", err, map[string]string{"id": id}))
		}
	}

	if err := p.assignSBUs(ctx, id, row); err != nil {
		out.Errors = append(out.Errors, *err)
	}
	return out
}

func (p *BatchProcessor) updateUser(ctx context.Context, row domain.ImportRow) RowOutcome {
	id := *row.ID
	out := RowOutcome{Row: row.Row, Kind: RowKindExisting, ProfileID: id}

	update := p.buildUpdate(ctx, row)
	update.FirstName = row.FirstName
	update.LastName = row.LastName
	if !update.Empty() {
		if err := p.store.UpdateProfile(ctx, id, update); err != nil {
			out.Errors = append(out.Errors, rowError(row, domain.ImportErrorUpdate, "Failed to update profile", err, map[string]string{"id": id}))
		}
	}

	if row.Role != nil {
		if err := p.store.SetRole(ctx, id, *row.Role); err != nil {
			out.Errors = append(out.Errors, rowError(row, domain.ImportErrorRole, "Failed to update role", err, map[string]string{
				"id":   id,
				"role": string(*row.Role),
			}))
		}
	}

	if err := p.assignSBUs(ctx, id, row); err != nil {
		out.Errors = append(out.Errors, *err)
	}
	return out
}

// buildUpdate resolves the row's references. Unresolved names are left out
// of the update rather than failing the row.
func (p *BatchProcessor) buildUpdate(ctx context.Context, row domain.ImportRow) domain.ProfileUpdate {
	return domain.ProfileUpdate{
		OrgID:            row.OrgID,
		LevelID:          p.resolver.ResolveRef(ctx, domain.EntityLevel, row.Level),
		Gender:           row.Gender,
		DateOfBirth:      row.DateOfBirth,
		Designation:      row.Designation,
		LocationID:       p.resolver.ResolveRef(ctx, domain.EntityLocation, row.Location),
		EmploymentTypeID: p.resolver.ResolveRef(ctx, domain.EntityEmploymentType, row.EmploymentType),
		EmployeeRoleID:   p.resolver.ResolveRef(ctx, domain.EntityEmployeeRole, row.EmployeeRole),
		EmployeeTypeID:   p.resolver.ResolveRef(ctx, domain.EntityEmployeeType, row.EmployeeType),
		SupervisorID:     p.resolver.ResolveRef(ctx, domain.EntitySupervisor, row.SupervisorEmail),
		Status:           row.Status,
	}
}

// assignSBUs replaces the user's SBU membership with the resolved names of
// the row. Rows whose names all fail to resolve keep their current SBUs.
func (p *BatchProcessor) assignSBUs(ctx context.Context, userID string, row domain.ImportRow) *domain.ImportError {
	if len(row.SBUs) == 0 {
		return nil
	}
	assignments := p.resolver.ResolveSBUs(ctx, row.SBUs)
	if len(assignments) == 0 {
		return nil
	}
	if err := p.store.ReplaceSBUAssignments(ctx, userID, assignments); err != nil {
		importErr := rowError(row, domain.ImportErrorSBU, "Failed to assign SBUs", err, map[string]string{
			"id":   userID,
			"sbus": strings.Join(row.SBUs, domain.SBUSeparator),
		})
		return &importErr
	}
	return nil
}

func rowError(row domain.ImportRow, kind domain.ImportErrorType, message string, err error, data map[string]string) domain.ImportError {
	if data == nil {
		data = make(map[string]string, 1)
	}
	data["email"] = row.Email
	return domain.ImportError{
		Row:     row.Row,
		Type:    kind,
		Message: fmt.Sprintf("%s: %v", message, err),
		Data:    data,
	}
}
