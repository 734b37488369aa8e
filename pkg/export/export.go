// Package export writes CSV report views of the entity set: summary,
// detailed, leadership, departments, and research tasks, plus a blank
// research template for manual data entry.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/store"
)

// View selects which report an export produces.
type View string

// Export views.
const (
	ViewSummary     View = "summary"
	ViewDetailed    View = "detailed"
	ViewLeadership  View = "leadership"
	ViewDepartments View = "departments"
	ViewTasks       View = "tasks"
	ViewTemplate    View = "template"
)

// Views returns every supported view.
func Views() []View {
	return []View{ViewSummary, ViewDetailed, ViewLeadership, ViewDepartments, ViewTasks, ViewTemplate}
}

// Exporter writes CSV reports into a directory.
type Exporter struct {
	store store.Store
	dir   string
	now   func() time.Time
}

// Option configures the exporter.
type Option func(*Exporter)

// WithClock overrides the exporter's time source, used for file naming.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an exporter writing into dir.
func New(st store.Store, dir string, opts ...Option) *Exporter {
	e := &Exporter{store: st, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the requested view and returns the path of the written
// file.
func (e *Exporter) Export(ctx context.Context, view View) (string, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)

	switch view {
	case ViewSummary:
		header, rows, err = e.summaryRows(ctx)
	case ViewDetailed:
		header, rows, err = e.detailedRows(ctx)
	case ViewLeadership:
		header, rows, err = e.leadershipRows(ctx)
	case ViewDepartments:
		header, rows, err = e.departmentRows(ctx)
	case ViewTasks:
		header, rows, err = e.taskRows(ctx)
	case ViewTemplate:
		header, rows, err = e.templateRows(ctx)
	default:
		return "", fmt.Errorf("unknown export view %q", view)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, fmt.Sprintf("bankatlas_%s_%s.csv", view, e.now().Format("20060102_150405")))
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}

	logging.Ctx(ctx).Info().
		Str("view", string(view)).
		Str("path", path).
		Int("rows", len(rows)).
		Msg("Exported CSV report")
	return path, nil
}

func (e *Exporter) summaryRows(ctx context.Context) ([]string, [][]string, error) {
	banks, err := e.store.Banks(ctx)
	if err != nil {
		return nil, nil, err
	}

	header := []string{
		"Bank Name", "Asset Rank", "Total Assets (Millions)", "Size Category",
		"State", "Has MRM Data", "Leadership Count", "Completeness Score",
		"Quality Status", "Last Updated",
	}
	rows := make([][]string, 0, len(banks))
	for _, b := range banks {
		hasMRM := "No"
		if b.HasMRMData() {
			hasMRM = "Yes"
		}
		rows = append(rows, []string{
			b.Name(),
			intCell(b.AssetRank()),
			floatCell(b.TotalAssets()),
			string(b.SizeCategory()),
			b.StringField(entities.FieldHQState),
			hasMRM,
			strconv.Itoa(len(b.Leadership)),
			scoreCell(b.Completeness),
			string(b.Quality),
			dateCell(b.UpdatedAt),
		})
	}
	return header, rows, nil
}

func (e *Exporter) detailedRows(ctx context.Context) ([]string, [][]string, error) {
	banks, err := e.store.Banks(ctx)
	if err != nil {
		return nil, nil, err
	}

	header := []string{
		"Bank Name", "Identity Key", "Cert ID", "RSSD ID", "Asset Rank",
		"Total Assets (Millions)", "Size Category", "Headquarters",
		"MRM Departments", "MRM Functions", "Leadership Summary",
		"Completeness Score", "Confidence Score", "Quality Status",
		"Data Sources", "Source URLs", "Last Verified", "Notes",
	}
	rows := make([][]string, 0, len(banks))
	for _, b := range banks {
		leaders, err := e.resolveLeaders(ctx, b)
		if err != nil {
			return nil, nil, err
		}

		rows = append(rows, []string{
			b.Name(),
			b.Key,
			intCell(b.CertID()),
			intCell(b.IntField(entities.FieldRSSDID)),
			intCell(b.AssetRank()),
			floatCell(b.TotalAssets()),
			string(b.SizeCategory()),
			headquarters(b),
			departmentNames(b.Departments),
			departmentFunctions(b.Departments),
			leadershipSummary(leaders),
			scoreCell(b.Completeness),
			scoreCell(b.Confidence),
			string(b.Quality),
			sourceList(b),
			strings.Join(b.SourceURLs, "; "),
			timePtrCell(b.LastVerified),
			b.StringField(entities.FieldNotes),
		})
	}
	return header, rows, nil
}

func (e *Exporter) leadershipRows(ctx context.Context) ([]string, [][]string, error) {
	banks, err := e.store.Banks(ctx)
	if err != nil {
		return nil, nil, err
	}

	header := []string{
		"Bank Name", "Asset Rank", "Leader Name", "Title", "Department",
		"Profile Handle", "Email", "Phone", "Confidence Score",
	}
	var rows [][]string
	for _, b := range banks {
		leaders, err := e.resolveLeaders(ctx, b)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range leaders {
			name := p.Name()
			if name == "" {
				name = "Unknown"
			}
			title := p.Title()
			if title == "" {
				title = "Unknown"
			}
			rows = append(rows, []string{
				b.Name(),
				intCell(b.AssetRank()),
				name,
				title,
				p.StringField(entities.FieldDepartment),
				p.ProfileHandle(),
				p.StringField(entities.FieldEmail),
				p.StringField(entities.FieldPhone),
				scoreCell(p.Confidence),
			})
		}
	}
	return header, rows, nil
}

func (e *Exporter) departmentRows(ctx context.Context) ([]string, [][]string, error) {
	banks, err := e.store.Banks(ctx)
	if err != nil {
		return nil, nil, err
	}

	header := []string{
		"Bank Name", "Asset Rank", "Department Name", "Parent Organization",
		"Reporting Structure", "Team Size", "Functions", "Source",
	}
	var rows [][]string
	for _, b := range banks {
		for _, d := range b.Departments {
			rows = append(rows, []string{
				b.Name(),
				intCell(b.AssetRank()),
				d.Name,
				d.ParentOrg,
				d.ReportingStructure,
				intCell(d.TeamSize),
				functionList(d.Functions),
				string(d.Source),
			})
		}
	}
	return header, rows, nil
}

func (e *Exporter) taskRows(ctx context.Context) ([]string, [][]string, error) {
	tasks, err := e.store.Tasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, nil, err
	}

	header := []string{"Entity Key", "Task Type", "Priority", "Status", "Created", "Due", "Description"}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.EntityKey,
			string(t.Type),
			strconv.Itoa(t.Priority),
			string(t.Status),
			dateCell(t.CreatedAt),
			timePtrCell(t.DueAt),
			t.Description,
		})
	}
	return header, rows, nil
}

// templateRows produces a blank research worksheet: one row per bank
// missing MRM data, with empty columns for manual findings.
func (e *Exporter) templateRows(ctx context.Context) ([]string, [][]string, error) {
	noMRM := false
	banks, err := e.store.QueryBanks(ctx, store.Query{HasMRMData: &noMRM})
	if err != nil {
		return nil, nil, err
	}

	header := []string{
		"Bank Name", "Asset Rank", "MRM Department Name", "Parent Organization",
		"Leader Name", "Leader Title", "Profile Handle", "Source URL", "Notes",
	}
	rows := make([][]string, 0, len(banks))
	for _, b := range banks {
		rows = append(rows, []string{
			b.Name(), intCell(b.AssetRank()), "", "", "", "", "", "", "",
		})
	}
	return header, rows, nil
}

func (e *Exporter) resolveLeaders(ctx context.Context, b *entities.BankEntity) ([]*entities.PersonEntity, error) {
	leaders := make([]*entities.PersonEntity, 0, len(b.Leadership))
	for _, key := range b.Leadership {
		p, err := e.store.Person(ctx, key)
		if err != nil {
			continue
		}
		leaders = append(leaders, p)
	}
	return leaders, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func headquarters(b *entities.BankEntity) string {
	city := b.StringField(entities.FieldHQCity)
	state := b.StringField(entities.FieldHQState)
	if city != "" && state != "" {
		return city + ", " + state
	}
	return city + state
}

func departmentNames(depts []entities.MRMDepartment) string {
	names := make([]string, 0, len(depts))
	for _, d := range depts {
		names = append(names, d.Name)
	}
	return strings.Join(names, "; ")
}

func departmentFunctions(depts []entities.MRMDepartment) string {
	seen := make(map[entities.FunctionTag]bool)
	var tags []string
	for _, d := range depts {
		for _, tag := range d.Functions {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, string(tag))
			}
		}
	}
	return strings.Join(tags, "; ")
}

func functionList(tags []entities.FunctionTag) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, string(tag))
	}
	return strings.Join(out, "; ")
}

func leadershipSummary(leaders []*entities.PersonEntity) string {
	parts := make([]string, 0, len(leaders))
	for _, p := range leaders {
		name := p.Name()
		if name == "" {
			name = "Unknown"
		}
		if title := p.Title(); title != "" {
			parts = append(parts, name+" ("+title+")")
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "; ")
}

func sourceList(b *entities.BankEntity) string {
	out := make([]string, 0, len(b.DataSources))
	for _, s := range b.DataSources {
		out = append(out, string(s))
	}
	return strings.Join(out, "; ")
}

func intCell(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func floatCell(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func scoreCell(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func dateCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func timePtrCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
