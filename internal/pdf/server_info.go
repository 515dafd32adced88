package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joshasn/medical-form-app-sub001/internal/descriptions"
)

// DirectoryCache provides TTL-based caching for directory contents
type DirectoryCache struct {
	entries map[string]*CacheEntry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// CacheEntry represents a cached directory scan result
type CacheEntry struct {
	files      []FileInfo
	truncated  bool
	lastUpdate time.Time
	scanning   bool
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves cached directory contents if valid
func (c *DirectoryCache) Get(path string) (*ScanResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists || entry.lastUpdate.IsZero() || c.now().Sub(entry.lastUpdate) > c.ttl {
		return nil, false
	}

	return &ScanResult{
		Files:     append([]FileInfo(nil), entry.files...),
		FromCache: true,
		CacheAge:  c.now().Sub(entry.lastUpdate),
		Truncated: entry.truncated,
	}, true
}

// Set stores directory contents in cache
func (c *DirectoryCache) Set(path string, result *ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &CacheEntry{
		files:      append([]FileInfo(nil), result.Files...),
		truncated:  result.Truncated,
		lastUpdate: c.now(),
	}
}

// TryStartScan marks path as being scanned. It reports false when another
// scan of path is already running.
func (c *DirectoryCache) TryStartScan(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[path]
	if !exists {
		entry = &CacheEntry{}
		c.entries[path] = entry
	}
	if entry.scanning {
		return false
	}
	entry.scanning = true
	return true
}

// FinishScan clears the scanning mark set by TryStartScan
func (c *DirectoryCache) FinishScan(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[path]; exists {
		entry.scanning = false
	}
}

// Invalidate drops every entry
func (c *DirectoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path, entry := range c.entries {
		if !entry.scanning {
			delete(c.entries, path)
		}
	}
}

// Len returns the number of entries, including expired ones
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LazyDirectoryScanner performs bounded directory scanning for PDF forms
type LazyDirectoryScanner struct {
	maxDepth  int
	fileLimit int
	timeLimit time.Duration
	validator *Validator
}

// ScanResult represents the result of a directory scan
type ScanResult struct {
	Files        []FileInfo
	FromCache    bool
	CacheAge     time.Duration
	ScanTime     time.Duration
	FilesScanned int
	Truncated    bool
}

// NewLazyDirectoryScanner creates a new lazy directory scanner. Hidden
// entries and symlinks are never followed.
func NewLazyDirectoryScanner(maxDepth, fileLimit int, timeLimit time.Duration, validator *Validator) *LazyDirectoryScanner {
	return &LazyDirectoryScanner{
		maxDepth:  maxDepth,
		fileLimit: fileLimit,
		timeLimit: timeLimit,
		validator: validator,
	}
}

type scanState struct {
	start   time.Time
	visited map[string]bool
	result  *ScanResult
}

// ScanDirectory lists PDF files below root, stopping at the configured limits
func (s *LazyDirectoryScanner) ScanDirectory(ctx context.Context, root string) (*ScanResult, error) {
	st := &scanState{
		start:   time.Now(),
		visited: make(map[string]bool),
		result:  &ScanResult{Files: []FileInfo{}},
	}

	err := s.scan(ctx, root, 0, st)
	st.result.ScanTime = time.Since(st.start)
	return st.result, err
}

func (s *LazyDirectoryScanner) full(st *scanState) bool {
	if s.fileLimit > 0 && len(st.result.Files) >= s.fileLimit {
		return true
	}
	return s.timeLimit > 0 && time.Since(st.start) > s.timeLimit
}

func (s *LazyDirectoryScanner) scan(ctx context.Context, path string, depth int, st *scanState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxDepth > 0 && depth >= s.maxDepth {
		return nil
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil || st.visited[realPath] {
		return nil
	}
	st.visited[realPath] = true

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.full(st) {
			st.result.Truncated = true
			return nil
		}

		st.result.FilesScanned++
		if strings.HasPrefix(entry.Name(), ".") || entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		entryPath := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			if err := s.scan(ctx, entryPath, depth+1, st); err != nil {
				return err
			}
			continue
		}
		if !isPDFName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		st.result.Files = append(st.result.Files, FileInfo{
			Name:         entry.Name(),
			Path:         entryPath,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
			Valid:        s.validator.ValidateFileInfo(entryPath, info) == nil,
		})
	}

	return nil
}

// PDFServerInfo builds server info responses over a cached directory listing
type PDFServerInfo struct {
	cache   *DirectoryCache
	scanner *LazyDirectoryScanner
	service *Service
}

// NewPDFServerInfo creates a new server info handler
func NewPDFServerInfo(service *Service) *PDFServerInfo {
	return &PDFServerInfo{
		cache:   NewDirectoryCache(5 * time.Minute),
		scanner: NewLazyDirectoryScanner(5, 100, 3*time.Second, service.validator),
		service: service,
	}
}

// GetServerInfo describes the server and lists the forms in the configured directory
func (p *PDFServerInfo) GetServerInfo(ctx context.Context, serverName, version string) (*ServerInfoResult, error) {
	dir := p.service.Directory()

	scanResult, ok := p.cache.Get(dir)
	switch {
	case ok:
	case !p.cache.TryStartScan(dir):
		// another request is scanning; answer without blocking
		scanResult = &ScanResult{Files: []FileInfo{}}
	default:
		scanCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var err error
		scanResult, err = p.scanner.ScanDirectory(scanCtx, dir)
		p.cache.FinishScan(dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			scanResult = &ScanResult{Files: []FileInfo{}}
		} else {
			p.cache.Set(dir, scanResult)
		}
	}

	templates, err := p.service.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		MaxFileSize:       p.service.maxFileSize,
		Flatten:           p.service.flatten,
		TemplateCount:     len(templates),
		AvailableTools:    p.getAvailableTools(),
		DirectoryContents: scanResult.Files,
		Truncated:         scanResult.Truncated,
		UsageGuidance:     p.getUsageGuidance(),
	}, nil
}

// getAvailableTools returns the list of available tools
func (p *PDFServerInfo) getAvailableTools() []ToolInfo {
	const pathParam = "path (required): PDF form path, absolute or relative to the configured directory"

	return []ToolInfo{
		{
			Name:        "pdf_discover_fields",
			Description: descriptions.GetToolDescription("pdf_discover_fields"),
			Usage:       "Use this tool first to learn the field names, kinds, options and positions of a form.",
			Parameters:  pathParam,
		},
		{
			Name:        "pdf_fill_form",
			Description: descriptions.GetToolDescription("pdf_fill_form"),
			Usage:       "Use this tool to write JSON or YAML data into a form and save the filled copy.",
			Parameters: pathParam + ", data or data_path (one required): the values, " +
				"output_path (optional), flatten (optional), validate (optional)",
		},
		{
			Name:        "pdf_map_data",
			Description: descriptions.GetToolDescription("pdf_map_data"),
			Usage:       "Use this tool to preview which data keys would land in which fields without writing anything.",
			Parameters:  pathParam + ", data (required): JSON or YAML object",
		},
		{
			Name:        "pdf_validate_data",
			Description: descriptions.GetToolDescription("pdf_validate_data"),
			Usage:       "Use this tool to check dates and phone numbers before filling.",
			Parameters:  "data (required): JSON or YAML object",
		},
		{
			Name:        "pdf_draw_table",
			Description: descriptions.GetToolDescription("pdf_draw_table"),
			Usage:       "Use this tool to stamp a header and row grid onto a page.",
			Parameters:  pathParam + ", table (required): JSON table description, output_path (optional)",
		},
		{
			Name:        "pdf_template_save",
			Description: descriptions.GetToolDescription("pdf_template_save"),
			Usage:       "Use this tool to remember the field layout of a form under a name.",
			Parameters:  pathParam + ", name (required): template name",
		},
		{
			Name:        "pdf_template_list",
			Description: descriptions.GetToolDescription("pdf_template_list"),
			Usage:       "Use this tool to see every saved template.",
			Parameters:  "No parameters required",
		},
		{
			Name:        "pdf_template_get",
			Description: descriptions.GetToolDescription("pdf_template_get"),
			Usage:       "Use this tool to read back a saved template.",
			Parameters:  "id (required): template ID",
		},
		{
			Name:        "pdf_template_delete",
			Description: descriptions.GetToolDescription("pdf_template_delete"),
			Usage:       "Use this tool to remove a saved template.",
			Parameters:  "id (required): template ID",
		},
		{
			Name:        "pdf_server_info",
			Description: descriptions.GetToolDescription("pdf_server_info"),
			Usage:       "Use this tool to get server capabilities and the forms in the configured directory.",
			Parameters:  "No parameters required",
		},
	}
}

// getUsageGuidance returns usage guidance
func (p *PDFServerInfo) getUsageGuidance() string {
	maxFileSizeMB := p.service.maxFileSize / (1024 * 1024)

	return fmt.Sprintf(`Form Fill MCP Server Usage Guide:

1. DISCOVER:
   - Use 'pdf_server_info' to list the forms in the configured directory
   - Use 'pdf_discover_fields' to get field names, kinds, options and positions

2. PREPARE DATA:
   - Nested JSON or YAML objects are flattened with '_' between levels
   - Keys are matched to fields exactly, then ignoring case and separators, then by shared words
   - Use 'pdf_map_data' to preview the mapping and 'pdf_validate_data' to check values

3. FILL:
   - Use 'pdf_fill_form' with inline data or a data file
   - Checkboxes accept Yes, yes, true or 1; radio buttons and dropdowns need one of the listed options
   - Text that the standard fonts cannot show is reduced to plain ASCII and reported as recovered
   - Set flatten to turn the filled fields into static page content

4. TEMPLATES:
   - Use 'pdf_template_save' to remember a form layout, then list, get or delete it later

IMPORTANT NOTES:
- Paths are confined to %s
- The server can handle files up to %dMB
- Outputs default to '<name>_filled.pdf' next to the input
- Directory listings are cached for 5 minutes and limited to 100 files`, p.service.Directory(), maxFileSizeMB)
}

// ClearCache drops cached directory listings
func (p *PDFServerInfo) ClearCache() {
	p.cache.Invalidate()
}

// GetCacheStats returns cache statistics
func (p *PDFServerInfo) GetCacheStats() map[string]interface{} {
	return map[string]interface{}{
		"total_entries":     p.cache.Len(),
		"cache_ttl_minutes": p.cache.ttl.Minutes(),
	}
}
