package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/fill"
)

type options struct {
	dataPath string
	outPath  string
	flatten  bool
	format   string
	validate bool
	verbose  bool
}

// fieldListing is the JSON shape of the field list
type fieldListing struct {
	FilePath   string           `json:"file_path"`
	PageCount  int              `json:"page_count"`
	FieldCount int              `json:"field_count"`
	Fields     []document.Field `json:"fields"`
}

// fillReport is the JSON shape of a fill
type fillReport struct {
	FilePath   string                     `json:"file_path"`
	OutputPath string                     `json:"output_path,omitempty"`
	Validation *formdata.ValidationResult `json:"validation,omitempty"`
	Outcome    *fill.Outcome              `json:"outcome,omitempty"`
}

var errInvalidData = errors.New("data failed validation")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("pdf_fill_form", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts options
	flags.StringVar(&opts.dataPath, "data", "", "JSON or YAML file with the values to fill")
	flags.StringVarP(&opts.outPath, "out", "o", "", "Output PDF (default: <name>_filled.pdf)")
	flags.BoolVar(&opts.flatten, "flatten", false, "Turn filled fields into static content")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json")
	flags.BoolVar(&opts.validate, "validate", false, "Check dates and phone numbers and stop on errors")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every key as it is processed")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if flags.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one PDF file path required\n\n")
		printUsage(stderr, flags)
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 2
	}

	pdfPath := flags.Arg(0)
	doc, err := document.LoadFile(pdfPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.dataPath == "" {
		err = listFields(stdout, opts.format, pdfPath, doc)
	} else {
		err = fillForm(stdout, stderr, opts, pdfPath, doc)
	}
	if errors.Is(err, errInvalidData) {
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "pdf_fill_form - list or fill the fields of a PDF form")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_fill_form [options] <pdf-file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without --data the discovered fields are listed.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, flags.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_fill_form intake.pdf")
	fmt.Fprintln(w, "  pdf_fill_form --data jane.yaml --out jane.pdf --flatten intake.pdf")
	fmt.Fprintln(w, "  pdf_fill_form --format json --validate --data jane.json intake.pdf")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listFields(w io.Writer, format, path string, doc *document.Document) error {
	fields := doc.Fields()
	if format == "json" {
		return writeJSON(w, fieldListing{
			FilePath:   path,
			PageCount:  doc.PageCount(),
			FieldCount: len(fields),
			Fields:     fields,
		})
	}

	fmt.Fprintf(w, "%s: %d page(s), %d field(s)\n", path, doc.PageCount(), len(fields))
	for i, f := range fields {
		fmt.Fprintf(w, "%3d. %-30s %-11s", i+1, f.Name, f.Kind)
		if f.Rect != nil {
			fmt.Fprintf(w, " p%d [%g %g %g %g]", f.Rect.Page, f.Rect.X, f.Rect.Y, f.Rect.Width, f.Rect.Height)
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(w, " {%s}", strings.Join(f.Options, "|"))
		}
		if f.Value != "" {
			fmt.Fprintf(w, " = %q", f.Value)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func fillForm(stdout, stderr io.Writer, opts options, path string, doc *document.Document) error {
	raw, err := os.ReadFile(opts.dataPath)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	flat, _, err := formdata.ParseData(raw)
	if err != nil {
		return err
	}

	report := fillReport{FilePath: path}
	if opts.validate {
		v := formdata.Validate(flat)
		report.Validation = &v
		if !v.IsValid {
			if opts.format == "json" {
				if err := writeJSON(stdout, report); err != nil {
					return err
				}
			} else {
				for _, e := range v.Errors {
					fmt.Fprintf(stderr, "invalid %s: %s\n", e.Key, e.Message)
				}
			}
			return errInvalidData
		}
	}

	fillOpts := fill.Options{Flatten: opts.flatten}
	if opts.verbose {
		fillOpts.Logger = log.New(stderr, "", 0)
	}
	data, outcome, err := fill.New(fillOpts).Fill(doc, flat)
	if err != nil {
		return err
	}

	out := opts.outPath
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + "_filled.pdf"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	report.OutputPath = out
	report.Outcome = outcome
	if opts.format == "json" {
		return writeJSON(stdout, report)
	}

	fmt.Fprintf(stdout, "Wrote %s: %d field(s) filled\n", out, outcome.FilledCount)
	for _, r := range outcome.Resolved {
		fmt.Fprintf(stdout, "  %-24s -> %s (%s)\n", r.Key, r.Field, r.Tier)
	}
	for _, key := range outcome.Unresolved {
		for _, e := range outcome.Diagnostics.ForKey(key) {
			fmt.Fprintf(stdout, "  %-24s !! %v\n", key, e)
		}
	}
	for _, key := range outcome.Recovered {
		fmt.Fprintf(stdout, "  %-24s ~ reduced to ASCII\n", key)
	}
	return nil
}
