// apps/go-server/assets/embed.go
//
// Files compiled into the binary:
//   - sql/*.sql: schema migrations, applied in lexical order.
//   - summary_prompt.txt: user prompt template for game summaries.
package assets

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed sql/*.sql summary_prompt.txt
var FS embed.FS

// Migration is one embedded schema script.
type Migration struct {
	Name string // file path inside FS, e.g. sql/001_init.sql
	SQL  string
}

// Migrations returns the embedded migration scripts sorted by name.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(FS, "sql")
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		name := "sql/" + e.Name()
		b, err := FS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: name, SQL: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SummaryPrompt returns the summary prompt template.
func SummaryPrompt() (string, error) {
	b, err := FS.ReadFile("summary_prompt.txt")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
