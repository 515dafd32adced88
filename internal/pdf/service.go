package pdf

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/fill"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/grid"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/security"
	"github.com/joshasn/medical-form-app-sub001/internal/template"
)

const outputPerm = 0o644

// Options configures a Service
type Options struct {
	MaxFileSize int64
	Directory   string
	// Flatten is the default for fills that do not say otherwise.
	Flatten   bool
	Templates template.Store
	Logger    *log.Logger
}

// Service is the file-level facade over discovery, filling, data mapping,
// grid drawing and template persistence
type Service struct {
	maxFileSize   int64
	flatten       bool
	validator     *Validator
	pathValidator *security.PathValidator
	templates     template.Store
	serverInfo    *PDFServerInfo
	logger        *log.Logger
}

// NewService creates a new PDF service with all components
func NewService(opts Options) (*Service, error) {
	pathValidator, err := security.NewPathValidator(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	store := opts.Templates
	if store == nil {
		store = template.NewMemoryStore()
	}

	s := &Service{
		maxFileSize:   opts.MaxFileSize,
		flatten:       opts.Flatten,
		validator:     NewValidator(opts.MaxFileSize),
		pathValidator: pathValidator,
		templates:     store,
		logger:        opts.Logger,
	}
	s.serverInfo = NewPDFServerInfo(s)

	if err := s.ValidateConfiguration(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// open resolves path inside the configured directory and loads the document
func (s *Service) open(path string) (*document.Document, string, error) {
	abs, err := s.pathValidator.ResolveInput(path)
	if err != nil {
		return nil, "", fmt.Errorf("security validation failed: %w", err)
	}
	data, err := s.validator.ReadFile(abs)
	if err != nil {
		return nil, "", err
	}
	doc, err := document.Load(data)
	if err != nil {
		return nil, "", err
	}
	return doc, abs, nil
}

// readData returns inline data or the content of a data file inside the configured directory
func (s *Service) readData(inline, path string) ([]byte, error) {
	switch {
	case inline != "" && path != "":
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeValidation, "provide either inline data or a data file, not both")
	case inline != "":
		if int64(len(inline)) > s.maxFileSize {
			return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSecurityRestriction, "data too large")
		}
		return []byte(inline), nil
	case path != "":
		abs, err := s.pathValidator.ResolveInput(path)
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot access data file: %w", err)
		}
		if info.Size() > s.maxFileSize {
			return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSecurityRestriction, "data file too large")
		}
		return os.ReadFile(abs)
	default:
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeValidation, "no data provided")
	}
}

func (s *Service) parseData(inline, path string) (formdata.Record, any, error) {
	raw, err := s.readData(inline, path)
	if err != nil {
		return nil, nil, err
	}
	flat, obj, err := formdata.ParseData(raw)
	if err != nil {
		return nil, nil, pdferrors.WrapError(pdferrors.ErrorTypeValidation, "invalid data", err)
	}
	return flat, obj, nil
}

// write stores data at an output path inside the configured directory
func (s *Service) write(path string, data []byte) (string, error) {
	abs, err := s.pathValidator.ResolveOutput(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	if err := os.WriteFile(abs, data, outputPerm); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", abs, err)
	}
	s.serverInfo.ClearCache()
	return abs, nil
}

// defaultOutput derives "<name>_<suffix>.pdf" next to the input
func defaultOutput(input, suffix string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_" + suffix + ".pdf"
}

// DiscoverFields lists the fillable fields and pages of a form
func (s *Service) DiscoverFields(req DiscoverFieldsRequest) (*DiscoverFieldsResult, error) {
	doc, abs, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	return &DiscoverFieldsResult{
		Path:      abs,
		PageCount: doc.PageCount(),
		Pages:     doc.Pages(),
		Fields:    doc.Fields(),
	}, nil
}

// FillForm fills a form with external data and writes the result.
// With Validate set, invalid data is reported and nothing is written.
func (s *Service) FillForm(req FillFormRequest) (*FillFormResult, error) {
	flat, _, err := s.parseData(req.Data, req.DataPath)
	if err != nil {
		return nil, err
	}

	doc, abs, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	result := &FillFormResult{Path: abs}
	if req.Validate {
		v := formdata.Validate(flat)
		result.Validation = &v
		if !v.IsValid {
			s.logf("fill: %s rejected, %d invalid value(s)", abs, len(v.Errors))
			return result, nil
		}
	}

	flatten := s.flatten
	if req.Flatten != nil {
		flatten = *req.Flatten
	}
	filler := fill.New(fill.Options{Flatten: flatten, Logger: s.logger})

	data, outcome, err := filler.Fill(doc, flat)
	if err != nil {
		return nil, err
	}

	out := req.OutputPath
	if out == "" {
		out = defaultOutput(abs, "filled")
	}
	written, err := s.write(out, data)
	if err != nil {
		return nil, err
	}

	result.OutputPath = written
	result.Size = len(data)
	result.Flattened = flatten
	result.Outcome = outcome
	return result, nil
}

// MapData resolves every key of external data against the fields of a form
func (s *Service) MapData(req MapDataRequest) (*MapDataResult, error) {
	_, obj, err := s.parseData(req.Data, "")
	if err != nil {
		return nil, err
	}

	doc, abs, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	mapping := formdata.MapToFields(obj, doc.FieldNames())
	return &MapDataResult{
		Path:     abs,
		Mapped:   mapping.Mapped,
		Unmapped: mapping.Unmapped,
	}, nil
}

// ValidateData applies the name-driven value checks to external data
func (s *Service) ValidateData(req ValidateDataRequest) (*formdata.ValidationResult, error) {
	flat, _, err := s.parseData(req.Data, "")
	if err != nil {
		return nil, err
	}
	result := formdata.Validate(flat)
	return &result, nil
}

// DrawTable draws a header and row grid onto a page and writes the result
func (s *Service) DrawTable(req DrawTableRequest) (*DrawTableResult, error) {
	if len(req.Table.Headers) == 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeValidation, "table needs at least one header")
	}
	if req.Table.Width <= 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeValidation, "table width must be positive")
	}

	doc, abs, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	if err := grid.Draw(doc, req.Table); err != nil {
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	out := req.OutputPath
	if out == "" {
		out = defaultOutput(abs, "table")
	}
	written, err := s.write(out, data)
	if err != nil {
		return nil, err
	}

	return &DrawTableResult{
		OutputPath: written,
		Page:       req.Table.Page,
		Height:     req.Table.Height(),
		Size:       len(data),
	}, nil
}

// SaveTemplate stores the discovered field positions of a form under a name
func (s *Service) SaveTemplate(ctx context.Context, req SaveTemplateRequest) (template.Template, error) {
	doc, _, err := s.open(req.Path)
	if err != nil {
		return template.Template{}, err
	}
	return s.templates.Save(ctx, template.FromFields(req.Name, doc.Fields()))
}

// GetTemplate returns a stored template
func (s *Service) GetTemplate(ctx context.Context, id string) (template.Template, error) {
	return s.templates.Get(ctx, id)
}

// ListTemplates returns every stored template
func (s *Service) ListTemplates(ctx context.Context) ([]template.Template, error) {
	return s.templates.List(ctx)
}

// DeleteTemplate removes a stored template
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.templates.Delete(ctx, id)
}

// ServerInfo describes the server, its tools and the forms in the configured directory
func (s *Service) ServerInfo(ctx context.Context, serverName, version string) (*ServerInfoResult, error) {
	return s.serverInfo.GetServerInfo(ctx, serverName, version)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Directory returns the configured forms directory
func (s *Service) Directory() string {
	return s.pathValidator.Root()
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return errors.New("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return errors.New("maxFileSize cannot exceed 1GB")
	}

	return nil
}
