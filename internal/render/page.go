// Package render turns archive tool output into the listing page.
package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/scheme"
)

var pageTmpl = template.Must(template.New("listing").Parse(`<html>
<head>
<style>
td {padding-left: 0px; padding-right: 10px}
</style>
</head>
<body bgcolor="white" style="font-family: monospace">
<title>{{.Title}}</title>
{{if .Readable -}}
<table>
<tr><th>Size</th><th>Date</th><th>File</th></tr>
{{range .Rows -}}
<tr>
<td>{{.Size}}</td>
<td>{{.Date}}</td>
<td><a href="{{.Link}}">{{.Name}}</a></td>
</tr>
{{end -}}
</table>
{{else -}}
The file {{.Title}} is not readable.
{{end -}}
</body></html>`))

type Page struct {
	Title    string
	Readable bool
	Entries  []domain.Entry
}

type row struct {
	Size string
	Date string
	Name string
	Link template.URL
}

// Render writes the listing document. Rows link through link, which
// defaults to the jar scheme.
func Render(w io.Writer, p Page, link scheme.Linker) error {
	if link == nil {
		link = scheme.Link
	}

	rows := make([]row, 0, len(p.Entries))
	for _, e := range p.Entries {
		rows = append(rows, row{
			Size: e.Size,
			Date: e.Date,
			Name: e.Name,
			// jar: is not on html/template's safe scheme list
			Link: template.URL(link(p.Title, e.Name)),
		})
	}

	data := struct {
		Title    string
		Readable bool
		Rows     []row
	}{p.Title, p.Readable, rows}

	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render listing: %w", err)
	}
	return nil
}
