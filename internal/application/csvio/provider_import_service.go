// Package csvio binds providers to the generic CSV import and export
// pipelines.
package csvio

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/textileplan/backend/internal/domain/bulk"
	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/domain/shared"
	csvimport "github.com/textileplan/backend/internal/infrastructure/import"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ProviderFields are the canonical import fields in validation order
var ProviderFields = []string{"name", "email", "phone_number", "address", "notes"}

// ProviderAliases lists the accepted source columns of each field
var ProviderAliases = map[string][]string{
	"name":         {"nombre", "proveedor", "provider_name", "company", "empresa"},
	"email":        {"correo", "mail", "email_address"},
	"phone_number": {"phone", "telefono", "tel", "celular"},
	"address":      {"direccion", "location", "ubicacion"},
	"notes":        {"notas", "comments", "comentarios", "description", "descripcion"},
}

// ProviderImportService imports providers from CSV
type ProviderImportService struct {
	providers partner.ProviderRepository
	history   *ImportHistoryService
	pipeline  *csvimport.Pipeline[partner.Provider]
}

// NewProviderImportService creates a new ProviderImportService
func NewProviderImportService(
	providers partner.ProviderRepository,
	historyRepo bulk.ImportHistoryRepository,
	tx shared.TxManager,
) *ProviderImportService {
	s := &ProviderImportService{
		providers: providers,
		history:   NewImportHistoryService(historyRepo),
	}
	s.pipeline = csvimport.NewPipeline(csvimport.Binding[partner.Provider]{
		Entity:     string(bulk.ImportEntityProviders),
		Mapper:     csvimport.NewAliasMapper(ProviderFields, ProviderAliases),
		Validator:  csvimport.NewRuleSet(s.GetValidationRules()...),
		Factory:    csvimport.FactoryFunc[partner.Provider](newProviderFromRecord),
		Duplicates: providerDuplicates{repo: providers},
		Store:      providers,
	}, tx)
	return s
}

// GetValidationRules returns the validation rules for provider import
func (s *ProviderImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("name").Label("Provider name").Required().MaxLength(partner.MaxNameLength).Build(),
		csvimport.Field("email").Email().Clean(partner.NormalizeEmail).Build(),
		csvimport.Field("phone_number").Label("Phone number").Clean(partner.CleanPhone).MaxLength(partner.MaxPhoneLength).Build(),
		csvimport.Field("address").Label("Address").MaxLength(partner.MaxAddressLength).Build(),
		csvimport.Field("notes").Label("Notes").MaxLength(partner.MaxNotesLength).Build(),
	}
}

// Import runs the provider pipeline over r. Real runs leave an
// ImportHistory record; validate-only runs do not.
func (s *ProviderImportService) Import(ctx context.Context, fileName string, r io.Reader, opts csvimport.Options) (*csvimport.Result, error) {
	if opts.ValidateOnly {
		return s.pipeline.Run(ctx, r, opts)
	}

	history, err := s.history.Start(ctx, bulk.ImportEntityProviders, fileName, opts)
	if err != nil {
		return nil, err
	}

	result, runErr := s.pipeline.Run(ctx, r, opts)

	var abort *csvimport.AbortError
	switch {
	case runErr == nil:
		err = s.history.Complete(ctx, history, result)
	case errors.As(runErr, &abort):
		err = s.history.Fail(ctx, history, abort.Result.Details)
	default:
		err = s.history.Fail(ctx, history, []csvimport.RowError{
			csvimport.NewRowError(0, "", csvimport.FileErrorCode(runErr), runErr.Error()),
		})
	}
	if err != nil {
		logger.L(ctx).Error("Failed to record import history",
			zap.String("history_id", history.ID.String()),
			zap.Error(err),
		)
	}

	return result, runErr
}

// Recent returns the latest provider import runs
func (s *ProviderImportService) Recent(ctx context.Context, limit int) ([]*bulk.ImportHistory, error) {
	return s.history.Recent(ctx, bulk.ImportEntityProviders, limit)
}

func newProviderFromRecord(rec csvimport.Record) (*partner.Provider, error) {
	return partner.NewProvider(
		rec.Get("name"),
		rec.Get("email"),
		rec.Get("phone_number"),
		rec.Get("address"),
		rec.Get("notes"),
	)
}

// providerDuplicates matches providers by case-insensitive name
type providerDuplicates struct {
	repo partner.ProviderRepository
}

func (d providerDuplicates) Key(rec csvimport.Record) string {
	return strings.ToLower(rec.Get("name"))
}

func (d providerDuplicates) Exists(ctx context.Context, rec csvimport.Record) (bool, error) {
	return d.repo.ExistsByName(ctx, rec.Get("name"))
}
