package migrations

import (
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"

	"gridx-backend/models"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestSourceReadsVersions(t *testing.T) {
	source, err := iofs.New(FS, ".")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := source.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	up, identifier, err := source.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "init_schema", identifier)
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	_, err := New("nosuchdb://localhost/gridx")
	assert.Error(t, err)
}

var createTable = regexp.MustCompile(`(?is)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)

// sqlColumns collects the column names of every table created by the up migrations.
func sqlColumns(t *testing.T) (map[string][]string, string) {
	t.Helper()
	names, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)

	var all strings.Builder
	tables := map[string][]string{}
	for _, name := range names {
		raw, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		all.Write(raw)
		for _, m := range createTable.FindAllStringSubmatch(string(raw), -1) {
			for _, line := range strings.Split(m[2], "\n") {
				fields := strings.Fields(line)
				if len(fields) == 0 {
					continue
				}
				switch strings.ToUpper(fields[0]) {
				case "CONSTRAINT", "PRIMARY", "UNIQUE", "FOREIGN", "CHECK":
					continue
				}
				tables[m[1]] = append(tables[m[1]], fields[0])
			}
		}
	}
	return tables, all.String()
}

func TestSchemaMatchesModels(t *testing.T) {
	tables, raw := sqlColumns(t)
	require.Len(t, tables, len(models.All()))

	cache := &sync.Map{}
	for _, model := range models.All() {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		require.NoError(t, err)

		t.Run(s.Table, func(t *testing.T) {
			cols, ok := tables[s.Table]
			require.True(t, ok, "no CREATE TABLE for %s", s.Table)

			want := append([]string(nil), s.DBNames...)
			sort.Strings(want)
			sort.Strings(cols)
			assert.Equal(t, want, cols)
		})
	}

	assert.Contains(t, raw, "CONSTRAINT valid_payment CHECK")
	assert.Contains(t, raw, "CONSTRAINT payments_within_total CHECK")
	assert.Contains(t, raw, "reference UUID NOT NULL UNIQUE")
}
