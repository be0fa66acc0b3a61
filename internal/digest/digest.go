// Package digest renders and sends the periodic email of verified reports.
package digest

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aipdigest/reportcrawl/internal/report"
)

// Section order in the rendered digest. Regions are inferred from the
// report host; intergovernmental sources get their own section.
var sectionOrder = []string{
	"United States",
	"European Union",
	"United Kingdom",
	"Intergovernmental",
	"General",
}

// Config tunes a digest run.
type Config struct {
	Subject      string
	LookbackDays int // default 10
	Limit        int // default 50
}

// Sender delivers a rendered digest to its recipients.
type Sender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// Deps holds the digest's collaborators.
type Deps struct {
	Store  report.CandidateStore
	Sender Sender
	Clock  report.Clock
	Logger *zap.Logger
}

// Digest assembles and sends the email of verified, unsent records.
type Digest struct {
	cfg  Config
	deps Deps
}

// New builds a Digest.
func New(cfg Config, deps Deps) (*Digest, error) {
	if deps.Store == nil || deps.Sender == nil || deps.Clock == nil {
		return nil, fmt.Errorf("store, sender, and clock are required")
	}
	if cfg.Subject == "" {
		cfg.Subject = "AI policy report digest"
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 10
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Digest{cfg: cfg, deps: deps}, nil
}

// Run sends one digest of verified unsent records and stamps them sent.
// With nothing to send it is a no-op.
func (d *Digest) Run(ctx context.Context) (int, error) {
	since := d.deps.Clock.Now().AddDate(0, 0, -d.cfg.LookbackDays)
	records, err := d.deps.Store.ListVerifiedUnsent(ctx, since, d.cfg.Limit)
	if err != nil {
		return 0, fmt.Errorf("list verified unsent: %w", err)
	}
	if len(records) == 0 {
		d.deps.Logger.Info("digest skipped, nothing to send")
		return 0, nil
	}

	body, err := Render(records, d.deps.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("render digest: %w", err)
	}
	if err := d.deps.Sender.Send(ctx, d.cfg.Subject, body); err != nil {
		return 0, fmt.Errorf("send digest: %w", err)
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	if err := d.deps.Store.MarkSent(ctx, ids, d.deps.Clock.Now()); err != nil {
		return len(records), fmt.Errorf("mark sent: %w", err)
	}

	d.deps.Logger.Info("digest sent", zap.Int("records", len(records)))
	return len(records), nil
}

type section struct {
	Name    string
	Records []report.Record
}

type digestData struct {
	Date     string
	Total    int
	Sections []section
}

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"published": func(r report.Record) string {
		if r.PublishedAt == nil {
			return "undated"
		}
		return r.PublishedAt.Format("2006-01-02")
	},
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 720px;">
<h2>AI Policy Reports — {{.Date}}</h2>
<p>{{.Total}} new verified report{{if ne .Total 1}}s{{end}}.</p>
{{range .Sections}}
<h3>{{.Name}}</h3>
<ul>
{{range .Records}}  <li>
    <a href="{{.ReportURL}}">{{if .Title}}{{.Title}}{{else}}{{.ReportURL}}{{end}}</a><br>
    <small>{{.SourceName}} · {{published .}}</small>
  </li>
{{end}}</ul>
{{end}}</body>
</html>
`))

// Render produces the digest HTML body, records grouped by region section.
func Render(records []report.Record, now time.Time) (string, error) {
	buckets := make(map[string][]report.Record)
	for _, rec := range records {
		buckets[Region(rec)] = append(buckets[Region(rec)], rec)
	}

	data := digestData{
		Date:  now.Format("January 2, 2006"),
		Total: len(records),
	}
	for _, name := range sectionOrder {
		if recs := buckets[name]; len(recs) > 0 {
			data.Sections = append(data.Sections, section{Name: name, Records: recs})
		}
	}

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Region maps a record to its digest section.
func Region(rec report.Record) string {
	if rec.SourceType == report.SourceIntergovernmental {
		return "Intergovernmental"
	}
	host := strings.ToLower(report.Host(rec.ReportURL))
	switch {
	case strings.HasSuffix(host, ".gov.uk") || strings.HasSuffix(host, ".uk"):
		return "United Kingdom"
	case strings.HasSuffix(host, "europa.eu") || strings.HasSuffix(host, ".eu"):
		return "European Union"
	case strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") || strings.HasSuffix(host, ".us"):
		return "United States"
	case strings.HasSuffix(host, ".int"):
		return "Intergovernmental"
	default:
		return "General"
	}
}
