package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Form tools
	PDFDiscoverFieldsDescription = `List every fillable field of a PDF form with its kind, options and position.

**When to use:** Before filling a form you have not seen, or when data keys do not line up with field names.

**What you get:** Field names in document order, the kind of each field (text, checkbox, radio, dropdown, unsupported), the allowed options of choice fields, the current value, read-only and required flags, and a top-left rectangle per field plus page sizes.

**Examples:**
• Inspect an intake form: "Which fields does intake.pdf have?"
• Plan a mapping: "List the options of the state dropdown in registration.pdf"

**Best practices:** Hierarchical fields are reported with dotted names such as "patient.name". Fields without a widget have no rectangle.`

	PDFFillFormDescription = `Fill a PDF form from a JSON or YAML object and save the filled copy.

**When to use:** You have data for a form (typed values, an exported record, a previous submission) and need a completed PDF.

**How keys are matched:** exact field name first, then case and separator insensitive, then by shared words. The first key that reaches a field wins; later keys for the same field are reported, not written.

**Examples:**
• Inline data: "Fill intake.pdf with {"first_name": "Jane", "consent": true}"
• From a file: "Fill intake.pdf using data/jane.yaml and flatten it"

**Result:** The output path, the resolved keys with their fields and match tier, unresolved keys with reasons, and keys whose text had to be reduced to plain ASCII.

**Best practices:** Run pdf_map_data first on unfamiliar data, enable validate to stop on bad dates or phone numbers, and flatten only when the form no longer needs editing.`

	PDFMapDataDescription = `Preview how a JSON or YAML object maps onto the fields of a form without writing anything.

**When to use:** Checking that exported data will land in the right fields before filling.

**Examples:**
• "Which keys of this record have no matching field in consent.pdf?"

**Result:** The mapped values keyed by field name, in data order, and the list of unmapped keys.`

	PDFValidateDataDescription = `Check external data for obviously bad values before filling.

**Checks:** keys containing "date" must look like YYYY-MM-DD, keys containing "phone" may only hold digits, spaces, hyphens and parentheses, and missing (null) values are always reported.

**Examples:**
• "Validate {"dob": "03/04/1990", "phone": "555-0100"}"`

	PDFDrawTableDescription = `Draw a header row and data rows as a static grid on a page of a PDF.

**When to use:** Adding a medication list, a visit summary or any tabular data to a form page.

**Table fields:** page (1-based), x and y (top-left corner in points from the top-left of the page), width, headers, rows, and optional rowHeight, headerHeight and fontSize.

**Examples:**
• "Add a table with headers Drug, Dose, Frequency at x=50 y=400 on page 2 of summary.pdf"

**Best practices:** Cells that do not fit are shortened with "..."; rows beyond the page bottom are drawn off-page, so size the table to the space available.`

	PDFTemplateSaveDescription = `Save the field layout of a form as a named template.

**When to use:** Remembering which fields a recurring form has and where they sit, so later requests can reuse the layout without reopening the PDF.`

	PDFTemplateListDescription = `List all saved form templates, oldest first.`

	PDFTemplateGetDescription = `Fetch one saved form template by ID, including every field position.`

	PDFTemplateDeleteDescription = `Delete a saved form template by ID.`

	PDFServerInfoDescription = `Get server configuration, the available tools and the PDF forms in the configured directory.

**When to use:** At the start of a session to learn what forms exist and how the server is set up (file size limit, default flatten behaviour, template count).

**Best practices:** Directory listings are cached for a few minutes and capped, so a freshly written file may take a moment to appear unless it was written by this server.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_discover_fields": PDFDiscoverFieldsDescription,
	"pdf_fill_form":       PDFFillFormDescription,
	"pdf_map_data":        PDFMapDataDescription,
	"pdf_validate_data":   PDFValidateDataDescription,
	"pdf_draw_table":      PDFDrawTableDescription,
	"pdf_template_save":   PDFTemplateSaveDescription,
	"pdf_template_list":   PDFTemplateListDescription,
	"pdf_template_get":    PDFTemplateGetDescription,
	"pdf_template_delete": PDFTemplateDeleteDescription,
	"pdf_server_info":     PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all described tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
