package csvio

import (
	"context"
	"fmt"

	"github.com/textileplan/backend/internal/domain/bulk"
	csvimport "github.com/textileplan/backend/internal/infrastructure/import"
)

// ImportHistoryService records the outcome of import runs
type ImportHistoryService struct {
	historyRepo bulk.ImportHistoryRepository
}

// NewImportHistoryService creates a new ImportHistoryService
func NewImportHistoryService(historyRepo bulk.ImportHistoryRepository) *ImportHistoryService {
	return &ImportHistoryService{
		historyRepo: historyRepo,
	}
}

// Start creates the history record of a run in processing state
func (s *ImportHistoryService) Start(
	ctx context.Context,
	entityType bulk.ImportEntityType,
	fileName string,
	opts csvimport.Options,
) (*bulk.ImportHistory, error) {
	history, err := bulk.NewImportHistory(entityType, fileName, opts.SkipDuplicates, opts.ContinueOnError)
	if err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to save import history: %w", err)
	}
	return history, nil
}

// Complete stores the counters and errors of a finished run
func (s *ImportHistoryService) Complete(ctx context.Context, history *bulk.ImportHistory, result *csvimport.Result) error {
	if err := history.Complete(result.ImportedCount, result.SkippedCount, result.ErrorCount, toErrorDetails(result.Details)); err != nil {
		return err
	}
	return s.historyRepo.Save(ctx, history)
}

// Fail marks a run as aborted with the errors collected so far
func (s *ImportHistoryService) Fail(ctx context.Context, history *bulk.ImportHistory, errors []csvimport.RowError) error {
	if err := history.Fail(toErrorDetails(errors)); err != nil {
		return err
	}
	return s.historyRepo.Save(ctx, history)
}

// Recent returns the latest runs of an entity type, newest first
func (s *ImportHistoryService) Recent(ctx context.Context, entityType bulk.ImportEntityType, limit int) ([]*bulk.ImportHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.historyRepo.FindRecent(ctx, entityType, limit)
}

// toErrorDetails converts csvimport.RowError to bulk.ImportErrorDetail
func toErrorDetails(errors []csvimport.RowError) []bulk.ImportErrorDetail {
	details := make([]bulk.ImportErrorDetail, len(errors))
	for i, e := range errors {
		details[i] = bulk.ImportErrorDetail{
			Line:    e.Row,
			Column:  e.Column,
			Code:    e.Code,
			Message: e.Message,
		}
	}
	return details
}
