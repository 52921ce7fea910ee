// Package render writes device records for people and programs: JSON,
// a Markdown table, or an aligned plain-text table.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/use-agent/smartpick/models"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatTable    = "table"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatJSON, FormatMarkdown, FormatTable}

// columns are the record fields shown in tables, in order.
var columns = []struct {
	title string
	value func(models.Device) string
}{
	{"Name", func(d models.Device) string { return d.Name }},
	{"Price", func(d models.Device) string { return d.Price }},
	{"Display", func(d models.Device) string { return d.Display }},
	{"Processor", func(d models.Device) string { return d.Processor }},
	{"RAM", func(d models.Device) string { return d.RAM }},
	{"Storage", func(d models.Device) string { return d.Storage }},
	{"Main camera", func(d models.Device) string { return d.MainCamera }},
	{"Battery", func(d models.Device) string { return d.Battery }},
}

// newMarkdownConverter renders HTML tables as GFM tables with minimal cell
// padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

var mdConverter = newMarkdownConverter()

var tableTmpl = template.Must(template.New("devices").Parse(
	`<table><thead><tr>{{range .Titles}}<th>{{.}}</th>{{end}}</tr></thead><tbody>` +
		`{{range .Rows}}<tr>{{range $i, $c := .Cells}}<td>{{if and (eq $i 0) $.Linked}}{{if .URL}}<a href="{{.URL}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}{{else}}{{.Text}}{{end}}</td>{{end}}</tr>{{end}}` +
		`</tbody></table>`))

type cell struct {
	Text string
	URL  string
}

type row struct {
	Cells []cell
}

// Markdown renders devices as a Markdown table. Names link to their detail
// pages.
func Markdown(devices []models.Device) (string, error) {
	data := struct {
		Titles []string
		Rows   []row
		Linked bool
	}{Linked: true}
	for _, c := range columns {
		data.Titles = append(data.Titles, c.title)
	}
	for _, d := range devices {
		r := row{}
		for i, c := range columns {
			cl := cell{Text: c.value(d)}
			if i == 0 {
				cl.URL = d.URL
			}
			r.Cells = append(r.Cells, cl)
		}
		data.Rows = append(data.Rows, r)
	}

	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: build table: %w", err)
	}
	md, err := mdConverter.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}

// Table writes devices as an aligned plain-text table.
func Table(w io.Writer, devices []models.Device) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = strings.ToUpper(c.title)
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	for _, d := range devices {
		vals := make([]string, len(columns))
		for i, c := range columns {
			vals[i] = orDash(c.value(d))
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "\t", " ")
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Result writes a search result in format. Table formats append a summary
// of failures and the run condition.
func Result(w io.Writer, format string, res *models.SearchResult) error {
	switch format {
	case FormatJSON:
		return JSON(w, res)
	case FormatMarkdown:
		md, err := Markdown(res.Devices)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, md); err != nil {
			return err
		}
	case FormatTable, "":
		if err := Table(w, res.Devices); err != nil {
			return err
		}
	default:
		return fmt.Errorf("render: unknown format %q", format)
	}
	return summary(w, res)
}

func summary(w io.Writer, res *models.SearchResult) error {
	fmt.Fprintf(w, "\n%d device(s), %d listing page(s), %d detail page(s)\n",
		len(res.Devices), res.PagesFetched, res.DetailsFetched)
	if res.Condition != "" {
		fmt.Fprintf(w, "condition: %s\n", res.Condition)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "skipped %s (%s): %s\n", f.URL, f.Kind, f.Message)
	}
	return nil
}

// Device writes one record in format. missing lists the fields the page
// lacked.
func Device(w io.Writer, format string, d models.Device, missing []string) error {
	switch format {
	case FormatJSON:
		return JSON(w, struct {
			models.Device
			Missing []string `json:"missing,omitempty"`
		}{d, missing})
	case FormatMarkdown:
		md, err := Markdown([]models.Device{d})
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range columns {
			fmt.Fprintf(tw, "%s\t%s\n", c.title, orDash(c.value(d)))
		}
		fmt.Fprintf(tw, "URL\t%s\n", orDash(d.URL))
		if len(missing) > 0 {
			fmt.Fprintf(tw, "Missing\t%s\n", strings.Join(missing, ", "))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("render: unknown format %q", format)
	}
}
