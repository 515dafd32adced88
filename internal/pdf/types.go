package pdf

import (
	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/fill"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/grid"
)

// FileInfo represents information about a PDF file in the configured directory
type FileInfo struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	Valid        bool   `json:"valid"`
}

// DiscoverFieldsRequest represents a request to enumerate a form's fields
type DiscoverFieldsRequest struct {
	Path string `json:"path"`
}

// DiscoverFieldsResult lists the fillable fields and pages of a form
type DiscoverFieldsResult struct {
	Path      string           `json:"path"`
	PageCount int              `json:"page_count"`
	Pages     []document.Page  `json:"pages"`
	Fields    []document.Field `json:"fields"`
}

// FillFormRequest represents a request to fill a form.
// Exactly one of Data (inline JSON or YAML) and DataPath must be set.
type FillFormRequest struct {
	Path       string `json:"path"`
	Data       string `json:"data,omitempty"`
	DataPath   string `json:"data_path,omitempty"`
	OutputPath string `json:"output_path"`
	// Flatten overrides the configured default when set.
	Flatten  *bool `json:"flatten,omitempty"`
	Validate bool  `json:"validate,omitempty"`
}

// FillFormResult reports the outcome of a fill
type FillFormResult struct {
	Path       string                     `json:"path"`
	OutputPath string                     `json:"output_path"`
	Size       int                        `json:"size"`
	Flattened  bool                       `json:"flattened"`
	Outcome    *fill.Outcome              `json:"outcome"`
	Validation *formdata.ValidationResult `json:"validation,omitempty"`
}

// MapDataRequest maps external data against the fields of a form
type MapDataRequest struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

// MapDataResult carries the mapped record and the keys that found no field
type MapDataResult struct {
	Path     string          `json:"path"`
	Mapped   formdata.Record `json:"mapped"`
	Unmapped []string        `json:"unmapped"`
}

// ValidateDataRequest represents a request to validate external data
type ValidateDataRequest struct {
	Data string `json:"data"`
}

// DrawTableRequest draws a grid onto a page of a form and writes the result
type DrawTableRequest struct {
	Path       string     `json:"path"`
	OutputPath string     `json:"output_path"`
	Table      grid.Table `json:"table"`
}

// DrawTableResult reports where the grid was written
type DrawTableResult struct {
	OutputPath string  `json:"output_path"`
	Page       int     `json:"page"`
	Height     float64 `json:"height"`
	Size       int     `json:"size"`
}

// SaveTemplateRequest stores the field positions of a form under a name
type SaveTemplateRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult represents the result of server info request
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	Flatten           bool       `json:"flatten"`
	TemplateCount     int        `json:"template_count"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	Truncated         bool       `json:"truncated"`
	UsageGuidance     string     `json:"usage_guidance"`
}
