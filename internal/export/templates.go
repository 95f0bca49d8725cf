package export

import (
	"bytes"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

// ReportMedia is one attachment row in the report.
type ReportMedia struct {
	URL    string
	Type   string
	Origin string
}

// ReportData holds complaint data for report rendering
type ReportData struct {
	ID           int64
	Name         string
	Phone        string
	Address      string
	Category     string
	Message      string
	Department   string
	Status       string
	RejectReason string
	HasLocation  bool
	Latitude     float64
	Longitude    float64
	Media        []ReportMedia
	CreatedAt    time.Time
	CompletedAt  *time.Time
	GeneratedAt  time.Time
}

// RenderReportHTML renders the complaint report template with provided data
func RenderReportHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Complaint #{{.ID}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
    td { padding: 6px 10px; border-bottom: 1px solid #ddd; vertical-align: top; }
    td.label { font-weight: bold; width: 140px; color: #555; }
    .status { text-transform: uppercase; letter-spacing: 0.05em; }
    .media { background: #f5f5f5; padding: 1rem; margin: 0.5rem 0; border-left: 3px solid #333; word-break: break-all; }
    .footer { margin-top: 3rem; font-size: 0.8em; color: #999; }
  </style>
</head>
<body>
  <h1>Complaint #{{.ID}}</h1>
  <div class="meta">{{if .Department}}{{.Department}} | {{end}}<span class="status">{{.Status}}</span> | submitted {{.CreatedAt.Format "Jan 2, 2006 15:04"}}</div>

  <table>
    <tr><td class="label">Name</td><td>{{.Name}}</td></tr>
    <tr><td class="label">Phone</td><td>{{.Phone}}</td></tr>
    <tr><td class="label">Address</td><td>{{.Address}}</td></tr>
    {{if .Category}}<tr><td class="label">Category</td><td>{{.Category}}</td></tr>{{end}}
    <tr><td class="label">Message</td><td>{{.Message}}</td></tr>
    {{if .HasLocation}}<tr><td class="label">Location</td><td>{{printf "%.6f" .Latitude}}, {{printf "%.6f" .Longitude}}</td></tr>{{end}}
    {{if .RejectReason}}<tr><td class="label">Reject reason</td><td>{{.RejectReason}}</td></tr>{{end}}
    {{if .CompletedAt}}<tr><td class="label">Completed</td><td>{{.CompletedAt.Format "Jan 2, 2006 15:04"}}</td></tr>{{end}}
  </table>

  {{if .Media}}
  <h2>Attachments</h2>
  {{range .Media}}<div class="media">{{.Type}}{{if .Origin}} ({{.Origin}}){{end}}: {{.URL}}</div>{{end}}
  {{end}}

  <div class="footer">Generated {{.GeneratedAt.Format "Jan 2, 2006 15:04"}}</div>
</body>
</html>`
