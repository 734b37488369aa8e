package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter/tw"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/store"
)

// BankTable renders the bank listing view.
func BankTable(banks []*entities.BankEntity) Data {
	rows := make([][]string, 0, len(banks))
	for _, b := range banks {
		mrm := "no"
		if b.HasMRMData() {
			mrm = "yes"
		}
		rows = append(rows, []string{
			formatRank(b.AssetRank()),
			b.Name(),
			b.StringField(entities.FieldHQState),
			string(b.SizeCategory()),
			mrm,
			formatPercent(b.Completeness),
			string(b.Quality),
		})
	}
	return Data{
		Headers: []string{"Rank", "Bank", "State", "Size", "MRM Data", "Completeness", "Quality"},
		Rows:    rows,
		ColumnAlignment: []tw.Align{
			tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft,
			tw.AlignLeft, tw.AlignRight, tw.AlignLeft,
		},
	}
}

// TaskTable renders the research task listing view. names maps entity
// keys to display names; missing keys fall back to the key itself.
func TaskTable(tasks []entities.ResearchTask, names map[string]string) Data {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		name, ok := names[t.EntityKey]
		if !ok {
			name = t.EntityKey
		}
		rows = append(rows, []string{
			name,
			string(t.Type),
			strconv.Itoa(t.Priority),
			string(t.Status),
			t.CreatedAt.Format("2006-01-02"),
			truncate(t.Description, 50),
		})
	}
	return Data{
		Title:   fmt.Sprintf("Research Tasks (%d)", len(tasks)),
		Headers: []string{"Bank", "Type", "Priority", "Status", "Created", "Description"},
		Rows:    rows,
		ColumnAlignment: []tw.Align{
			tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft,
			tw.AlignLeft, tw.AlignLeft,
		},
	}
}

// StatsTable renders the store statistics view.
func StatsTable(s store.Stats) Data {
	return Data{
		Title:   "Database Statistics",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Banks", strconv.Itoa(s.TotalBanks)},
			{"Total Persons", strconv.Itoa(s.TotalPersons)},
			{"Banks with MRM Data", strconv.Itoa(s.BanksWithMRMData)},
			{"MRM Coverage", fmt.Sprintf("%.1f%%", s.MRMCoveragePercent)},
			{"Average Completeness", formatPercent(s.AverageCompleteness)},
			{"Pending Research Tasks", strconv.Itoa(s.PendingTasks)},
			{"Recent Collections", strconv.Itoa(s.RecentCollections)},
		},
	}
}

// DetailTable renders the single-bank detail view.
func DetailTable(b *entities.BankEntity) Data {
	rows := [][]string{
		{"Name", b.Name()},
		{"Identity Key", b.Key},
		{"Cert ID", formatRank(b.CertID())},
		{"Asset Rank", formatRank(b.AssetRank())},
		{"Total Assets ($M)", formatAssets(b.TotalAssets())},
		{"Size Category", string(b.SizeCategory())},
		{"Headquarters", formatHQ(b)},
		{"Departments", strconv.Itoa(len(b.Departments))},
		{"Leadership", strconv.Itoa(len(b.Leadership))},
		{"Completeness", formatPercent(b.Completeness)},
		{"Confidence", formatPercent(b.Confidence)},
		{"Quality", string(b.Quality)},
		{"Last Verified", formatTime(b.LastVerified)},
		{"Updated", b.UpdatedAt.Format(time.RFC3339)},
	}
	return Data{
		Title:   b.Name(),
		Headers: []string{"Property", "Value"},
		Rows:    rows,
	}
}

// LeadershipTable renders a bank's resolved leadership view.
func LeadershipTable(leaders []*entities.PersonEntity) Data {
	rows := make([][]string, 0, len(leaders))
	for _, p := range leaders {
		rows = append(rows, []string{
			p.Name(),
			p.Title(),
			p.StringField(entities.FieldDepartment),
			p.ProfileHandle(),
			formatPercent(p.Confidence),
		})
	}
	return Data{
		Title:   "Leadership",
		Headers: []string{"Name", "Title", "Department", "Profile", "Confidence"},
		Rows:    rows,
	}
}

// LogTable renders recent collection activity.
func LogTable(entries []entities.CollectionLogEntry) Data {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Format("2006-01-02 15:04"),
			e.EntityKey,
			string(e.Source),
			string(e.Kind),
			string(e.Status),
			strconv.Itoa(e.RecordsChanged),
			e.Duration.Round(time.Millisecond).String(),
		})
	}
	return Data{
		Title:   "Collection Activity",
		Headers: []string{"Time", "Entity", "Source", "Kind", "Status", "Changed", "Duration"},
		Rows:    rows,
	}
}

func formatRank(n int) string {
	if n == 0 {
		return "N/A"
	}
	return strconv.Itoa(n)
}

func formatAssets(millions float64) string {
	if millions == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f", millions)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatHQ(b *entities.BankEntity) string {
	city := b.StringField(entities.FieldHQCity)
	state := b.StringField(entities.FieldHQState)
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
