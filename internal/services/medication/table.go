package medication

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/PREDICTif/medview/internal/models"
)

//go:embed default_table.toml
var defaultTableFS embed.FS

// Entry holds the curated safety data for one medication
type Entry struct {
	Contraindications []string `toml:"contraindications"`
	Interactions      []string `toml:"interactions"`
	Warning           string   `toml:"warning"`
}

// Table is the static medication interaction table, keyed by normalized
// medication name. It is loaded once at process start and read-only for the
// process lifetime, so unsynchronized concurrent reads are safe.
type Table struct {
	Medications map[string]Entry    `toml:"medications"`
	Synonyms    map[string][]string `toml:"synonyms"`

	// names caches the medication keys in sorted order so lookups iterate
	// deterministically.
	names []string
}

// LoadTable reads a medication table from a TOML file. An empty path loads
// the embedded default table.
func LoadTable(path string) (*Table, error) {
	var data []byte
	var err error

	if path == "" {
		data, err = defaultTableFS.ReadFile("default_table.toml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read medication table: %v", models.ErrConfiguration, err)
	}

	var table Table
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: failed to parse medication table: %v", models.ErrConfiguration, err)
	}

	if len(table.Medications) == 0 {
		return nil, fmt.Errorf("%w: medication table is empty", models.ErrConfiguration)
	}

	normalized := make(map[string]Entry, len(table.Medications))
	for name, entry := range table.Medications {
		normalized[normalizeName(name)] = entry
	}
	table.Medications = normalized

	table.names = make([]string, 0, len(table.Medications))
	for name := range table.Medications {
		table.names = append(table.names, name)
	}
	sort.Strings(table.names)

	return &table, nil
}

// Names returns the medication keys in stable sorted order
func (t *Table) Names() []string {
	return t.names
}

// termVariants returns the term itself plus its defined synonyms
func (t *Table) termVariants(term string) []string {
	variants := []string{term}
	variants = append(variants, t.Synonyms[term]...)
	return variants
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
