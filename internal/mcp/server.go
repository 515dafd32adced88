package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joshasn/medical-form-app-sub001/internal/config"
	"github.com/joshasn/medical-form-app-sub001/internal/descriptions"
	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf"
	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/grid"
	"github.com/joshasn/medical-form-app-sub001/internal/template"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	tools      []string
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if pdfService == nil {
		return nil, errors.New("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func pathOption() mcp.ToolOption {
	return mcp.WithString("path",
		mcp.Required(),
		mcp.Description("PDF form path, absolute or relative to the configured directory"),
	)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"pdf_discover_fields",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_discover_fields")),
		pathOption(),
	), s.handleDiscoverFields)

	s.addTool(mcp.NewTool(
		"pdf_fill_form",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_fill_form")),
		pathOption(),
		mcp.WithString("data", mcp.Description("JSON or YAML object with the values to fill")),
		mcp.WithString("data_path", mcp.Description("JSON or YAML file with the values, used instead of data")),
		mcp.WithString("output_path", mcp.Description("Where to write the filled PDF (default: <name>_filled.pdf)")),
		mcp.WithBoolean("flatten", mcp.Description("Turn filled fields into static content")),
		mcp.WithBoolean("validate", mcp.Description("Check dates and phone numbers first and stop on errors")),
	), s.handleFillForm)

	s.addTool(mcp.NewTool(
		"pdf_map_data",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_map_data")),
		pathOption(),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON or YAML object to map")),
	), s.handleMapData)

	s.addTool(mcp.NewTool(
		"pdf_validate_data",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_data")),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON or YAML object to validate")),
	), s.handleValidateData)

	s.addTool(mcp.NewTool(
		"pdf_draw_table",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_draw_table")),
		pathOption(),
		mcp.WithString("table", mcp.Required(),
			mcp.Description(`Table as JSON: {"page":1,"x":50,"y":400,"width":500,"headers":["A","B"],"rows":[["1","2"]]}`)),
		mcp.WithString("output_path", mcp.Description("Where to write the PDF (default: <name>_table.pdf)")),
	), s.handleDrawTable)

	s.addTool(mcp.NewTool(
		"pdf_template_save",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_template_save")),
		pathOption(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Template name")),
	), s.handleTemplateSave)

	s.addTool(mcp.NewTool(
		"pdf_template_list",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_template_list")),
	), s.handleTemplateList)

	s.addTool(mcp.NewTool(
		"pdf_template_get",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_template_get")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template ID")),
	), s.handleTemplateGet)

	s.addTool(mcp.NewTool(
		"pdf_template_delete",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_template_delete")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template ID")),
	), s.handleTemplateDelete)

	s.addTool(mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	), s.handleServerInfo)
}

// Tools returns the names of the registered tools in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) debugf(format string, args ...interface{}) {
	if s.config.IsDebug() {
		log.Printf(format, args...)
	}
}

// optionalBool returns nil when key is absent so the configured default applies
func optionalBool(request mcp.CallToolRequest, key string) (*bool, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		return &v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean", key)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
}

// tableArgument accepts the table as a JSON string or as a structured object
func tableArgument(request mcp.CallToolRequest) (grid.Table, error) {
	var t grid.Table
	raw, ok := request.GetArguments()["table"]
	if !ok || raw == nil {
		return t, errors.New(`required argument "table" not found`)
	}

	var data []byte
	if str, isString := raw.(string); isString {
		data = []byte(str)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return t, fmt.Errorf("invalid table: %w", err)
		}
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("invalid table: %w", err)
	}
	return t, nil
}

// Handler functions
func (s *Server) handleDiscoverFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.DiscoverFields(pdf.DiscoverFieldsRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.debugf("discover: %s has %d field(s)", result.Path, len(result.Fields))
	return mcp.NewToolResultText(s.formatDiscoverFieldsResult(result)), nil
}

func (s *Server) handleFillForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	flatten, err := optionalBool(request, "flatten")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	validate, err := optionalBool(request, "validate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.FillFormRequest{
		Path:       path,
		Data:       request.GetString("data", ""),
		DataPath:   request.GetString("data_path", ""),
		OutputPath: request.GetString("output_path", ""),
		Flatten:    flatten,
		Validate:   validate != nil && *validate,
	}

	result, err := s.pdfService.FillForm(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.Outcome == nil {
		return mcp.NewToolResultError(formatValidationResult(result.Validation)), nil
	}

	s.debugf("fill: %s -> %s, %d filled, %d unresolved",
		result.Path, result.OutputPath, result.Outcome.FilledCount, len(result.Outcome.Unresolved))
	return mcp.NewToolResultText(s.formatFillFormResult(result)), nil
}

func (s *Server) handleMapData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := request.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.MapData(pdf.MapDataRequest{Path: path, Data: data})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatMapDataResult(result)), nil
}

func (s *Server) handleValidateData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := request.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ValidateData(pdf.ValidateDataRequest{Data: data})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatValidationResult(result)), nil
}

func (s *Server) handleDrawTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	table, err := tableArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.DrawTable(pdf.DrawTableRequest{
		Path:       path,
		OutputPath: request.GetString("output_path", ""),
		Table:      table,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Drew table on page %d\n", result.Page)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Table height: %g pt\n", result.Height)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, err := s.pdfService.SaveTemplate(ctx, pdf.SaveTemplateRequest{Path: path, Name: name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Saved template\n" + formatTemplate(t)), nil
}

func (s *Server) handleTemplateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.pdfService.ListTemplates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Found %d template(s)\n", len(templates))
	for i, t := range templates {
		text += fmt.Sprintf("%d. %s (%s): %d field(s), created %s\n",
			i+1, t.Name, t.ID, len(t.Fields), t.CreatedAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, err := s.pdfService.GetTemplate(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTemplate(t)), nil
}

func (s *Server) handleTemplateDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.pdfService.DeleteTemplate(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted template %s", id)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatDiscoverFieldsResult(result *pdf.DiscoverFieldsResult) string {
	text := fmt.Sprintf("Form: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	for _, p := range result.Pages {
		text += fmt.Sprintf("  Page %d: %g x %g pt\n", p.Number, p.Width, p.Height)
	}
	text += fmt.Sprintf("Fields: %d\n", len(result.Fields))

	for i, f := range result.Fields {
		text += fmt.Sprintf("%d. %s (%s)", i+1, f.Name, f.Kind)
		var flags []string
		if f.Required {
			flags = append(flags, "required")
		}
		if f.ReadOnly {
			flags = append(flags, "read-only")
		}
		if len(flags) > 0 {
			text += " [" + strings.Join(flags, ", ") + "]"
		}
		text += "\n"
		if f.Rect != nil {
			text += fmt.Sprintf("   Page %d at x=%g y=%g, %g x %g\n", f.Rect.Page, f.Rect.X, f.Rect.Y, f.Rect.Width, f.Rect.Height)
		}
		if len(f.Options) > 0 {
			text += fmt.Sprintf("   Options: %s\n", strings.Join(f.Options, ", "))
		}
		if f.Value != "" {
			text += fmt.Sprintf("   Value: %s\n", f.Value)
		}
	}

	return text
}

func (s *Server) formatFillFormResult(result *pdf.FillFormResult) string {
	out := result.Outcome

	text := fmt.Sprintf("Filled form: %s\n", result.Path)
	text += fmt.Sprintf("Output: %s (%d bytes)\n", result.OutputPath, result.Size)
	text += fmt.Sprintf("Flattened: %t\n", result.Flattened)
	text += fmt.Sprintf("Filled fields: %d\n", out.FilledCount)

	if len(out.Resolved) > 0 {
		text += "\nResolved:\n"
		for _, r := range out.Resolved {
			text += fmt.Sprintf("  %s -> %s (%s, %s match)\n", r.Key, r.Field, r.Kind, r.Tier)
		}
	}

	if len(out.Unresolved) > 0 {
		text += "\nUnresolved:\n"
		for _, key := range out.Unresolved {
			text += fmt.Sprintf("  %s: %s\n", key, reason(out.Diagnostics.ForKey(key)))
		}
	}

	if len(out.Recovered) > 0 {
		text += "\nReduced to plain ASCII:\n"
		for _, key := range out.Recovered {
			text += fmt.Sprintf("  %s\n", key)
		}
	}

	return text
}

func reason(errs []*pdferrors.PDFError) string {
	if len(errs) == 0 {
		return "unknown"
	}
	return errs[len(errs)-1].Error()
}

func (s *Server) formatMapDataResult(result *pdf.MapDataResult) string {
	text := fmt.Sprintf("Mapped %d key(s) onto %s\n", len(result.Mapped), result.Path)
	for _, e := range result.Mapped {
		text += fmt.Sprintf("  %s = %s\n", e.Key, formdata.FormatValue(e.Value))
	}
	if len(result.Unmapped) > 0 {
		text += fmt.Sprintf("Unmapped keys: %s\n", strings.Join(result.Unmapped, ", "))
	}
	return text
}

func formatValidationResult(result *formdata.ValidationResult) string {
	if result == nil || result.IsValid {
		return "Data is valid\n"
	}
	text := fmt.Sprintf("Data is invalid: %d error(s)\n", len(result.Errors))
	for _, e := range result.Errors {
		text += fmt.Sprintf("  %s: %s\n", e.Key, e.Message)
	}
	return text
}

func formatTemplate(t template.Template) string {
	text := fmt.Sprintf("Template: %s\n", t.Name)
	text += fmt.Sprintf("ID: %s\n", t.ID)
	text += fmt.Sprintf("Created: %s\n", t.CreatedAt.Format(time.RFC3339))
	text += fmt.Sprintf("Fields: %d\n", len(t.Fields))
	for _, p := range t.Fields {
		text += fmt.Sprintf("  %s (%s)", p.Field, p.Kind)
		if p.Rect != nil {
			text += fmt.Sprintf(" page %d at x=%g y=%g, %g x %g", p.Rect.Page, p.Rect.X, p.Rect.Y, p.Rect.Width, p.Rect.Height)
		}
		text += "\n"
	}
	return text
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("Server: %s v%s\n", result.ServerName, result.Version)
	text += fmt.Sprintf("Forms directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("Max file size: %d bytes\n", result.MaxFileSize)
	text += fmt.Sprintf("Flatten by default: %t\n", result.Flatten)
	text += fmt.Sprintf("Saved templates: %d\n", result.TemplateCount)

	text += fmt.Sprintf("\nForms (%d", len(result.DirectoryContents))
	if result.Truncated {
		text += ", truncated"
	}
	text += "):\n"
	for _, f := range result.DirectoryContents {
		status := ""
		if !f.Valid {
			status = " [not readable]"
		}
		text += fmt.Sprintf("  %s (%d bytes, modified %s)%s\n", f.Path, f.Size, f.ModifiedTime, status)
	}

	text += "\nAvailable tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("  %s: %s\n", tool.Name, tool.Usage)
		text += fmt.Sprintf("    Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.debugf("Starting form fill MCP server in stdio mode")
	s.debugf("Forms directory: %s", s.pdfService.Directory())

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	log.Printf("Starting form fill MCP server on http://%s/sse", addr)
	s.debugf("Forms directory: %s", s.pdfService.Directory())

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve sse: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve sse: %w", err)
			}
		case <-shutdownCtx.Done():
			// Start had not bound the listener yet
		}
		return nil
	}
}
