package csvio

import (
	"context"
	"fmt"
	"time"

	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/domain/shared"
	csvexport "github.com/textileplan/backend/internal/infrastructure/export"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/storage"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ProviderExportSpec describes the provider export and its import template
var ProviderExportSpec = csvexport.Spec[partner.Provider]{
	SheetName:  csvexport.Labels{"es": "Proveedores", "en": "Providers"},
	FilePrefix: "proveedores",
	Columns: []csvexport.Column[partner.Provider]{
		{Field: "id", Header: csvexport.Labels{"es": "ID", "en": "ID"}, Value: func(p *partner.Provider) any { return p.ID }},
		{Field: "name", Header: csvexport.Labels{"es": "Nombre", "en": "Name"}, Value: func(p *partner.Provider) any { return p.Name }},
		{Field: "email", Header: csvexport.Labels{"es": "Email", "en": "Email"}, Value: func(p *partner.Provider) any { return p.Email }},
		{Field: "phone_number", Header: csvexport.Labels{"es": "Teléfono", "en": "Phone"}, Value: func(p *partner.Provider) any { return p.PhoneNumber }},
		{Field: "address", Header: csvexport.Labels{"es": "Dirección", "en": "Address"}, Value: func(p *partner.Provider) any { return p.Address }},
		{Field: "notes", Header: csvexport.Labels{"es": "Notas", "en": "Notes"}, Value: func(p *partner.Provider) any { return p.Notes }},
		{Field: "created_at", Header: csvexport.Labels{"es": "Fecha Creación", "en": "Created At"}, Value: func(p *partner.Provider) any { return p.CreatedAt }},
		{Field: "updated_at", Header: csvexport.Labels{"es": "Última Actualización", "en": "Updated At"}, Value: func(p *partner.Provider) any { return p.UpdatedAt }},
	},
	Template: []csvexport.TemplateColumn{
		{Header: csvexport.Labels{"es": "Nombre *", "en": "Name *"}, Sample: "Textiles ABC S.A.S."},
		{Header: csvexport.Labels{"es": "Email", "en": "Email"}, Sample: "contacto@textilesabc.com"},
		{Header: csvexport.Labels{"es": "Teléfono", "en": "Phone"}, Sample: "+57 1 234-5678"},
		{Header: csvexport.Labels{"es": "Dirección", "en": "Address"}, Sample: "Calle 123 #45-67, Bogotá"},
		{Header: csvexport.Labels{"es": "Notas", "en": "Notes"}, Sample: "Proveedor principal de telas"},
	},
}

// ExportRequest selects what to export and how
type ExportRequest struct {
	Filter   shared.Filter
	Template bool
	Format   csvexport.Format
	Locale   string
}

// ExportFile is a rendered export
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// ProviderExportService exports providers and the provider import template
type ProviderExportService struct {
	providers partner.ProviderRepository
	storage   storage.ObjectStorage
	now       func() time.Time
}

// ExportOption configures a ProviderExportService
type ExportOption func(*ProviderExportService)

// WithObjectStorage enables uploads to object storage
func WithObjectStorage(s storage.ObjectStorage) ExportOption {
	return func(svc *ProviderExportService) {
		svc.storage = s
	}
}

// WithClock overrides the clock used for file names
func WithClock(now func() time.Time) ExportOption {
	return func(svc *ProviderExportService) {
		svc.now = now
	}
}

// NewProviderExportService creates a new ProviderExportService
func NewProviderExportService(providers partner.ProviderRepository, opts ...ExportOption) *ProviderExportService {
	s := &ProviderExportService{
		providers: providers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export renders the providers matching req.Filter, or the empty import
// template when req.Template is set
func (s *ProviderExportService) Export(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	ctx, span := telemetry.StartSpan(ctx, "csvexport.providers",
		telemetry.SpanAttrEntityKind, "providers",
	)
	defer span.End()

	format := req.Format
	if format == "" {
		format = csvexport.FormatCSV
	}
	exporter := csvexport.NewExporter(ProviderExportSpec, csvexport.ParseLocale(req.Locale))

	var sheet *csvexport.Sheet
	if req.Template {
		sheet = exporter.TemplateSheet()
	} else {
		providers, err := s.providers.FindForExport(ctx, req.Filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load providers: %w", err)
		}
		sheet = exporter.Sheet(providers)
	}

	data, err := sheet.Bytes(format)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	file := &ExportFile{
		Name:        exporter.FileName(req.Template, format, s.now()),
		ContentType: format.ContentType(),
		Data:        data,
	}
	if !req.Template {
		file.Rows = len(sheet.Rows)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, file.Rows)

	logger.L(ctx).Info("Providers exported",
		zap.String("file_name", file.Name),
		zap.String("format", string(format)),
		zap.Bool("template", req.Template),
		zap.Int("rows", file.Rows),
	)
	return file, nil
}

// Upload stores an export at loc and returns a presigned download URL.
// An empty key in loc is replaced by the file name.
func (s *ProviderExportService) Upload(ctx context.Context, file *ExportFile, loc storage.Location, expiresIn time.Duration) (string, error) {
	if s.storage == nil {
		return "", shared.NewDomainError("STORAGE_DISABLED", "Object storage is not configured")
	}
	if loc.Key == "" || loc.Key[len(loc.Key)-1] == '/' {
		loc.Key += file.Name
	}
	if err := s.storage.Upload(ctx, loc, file.Data, file.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	url, _, err := s.storage.GenerateDownloadURL(ctx, loc, expiresIn)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}
