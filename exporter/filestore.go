package exporter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"text/template"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/metrics"
	"github.com/giygas/rug-formats/rugparser/entities"
)

var (
	_ interfaces.FormatStore  = (*FileStore)(nil)
	_ interfaces.FileProducer = (*FileStore)(nil)
)

// tableNameRegex keeps table names usable as file, SAS and SQL identifiers
var tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,31}$`)

var importProgram = template.Must(template.New("import").Parse(`/* Load the {{.Table}} format table into {{.Libref}}.{{.Table}} */
LIBNAME {{.Libref}} "{{.SASDir}}";

PROC IMPORT DATAFILE="{{.SASFile}}"
    OUT={{.Libref}}.{{.Table}}
    DBMS=CSV
    REPLACE;
    GETNAMES=YES;
    GUESSINGROWS=MAX;
RUN;
`))

// FileStore is the directory assigned to a SAS libref. Each format table is
// written as a CNTLIN CSV next to the SAS program that imports it.
type FileStore struct {
	dir    string
	sasDir string
	libref string

	mu    sync.Mutex
	files []string
}

// NewFileStore creates a file store. sasDir is the directory as the SAS
// server sees it and defaults to dir.
func NewFileStore(dir, sasDir, libref string) *FileStore {
	if sasDir == "" {
		sasDir = dir
	}
	return &FileStore{dir: dir, sasDir: sasDir, libref: libref}
}

// Name implements FormatStore
func (s *FileStore) Name() string {
	return "files"
}

// WriteFormat writes <dir>/<table>.csv and <dir>/<table>.sas
func (s *FileStore) WriteFormat(ctx context.Context, table entities.FormatTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !tableNameRegex.MatchString(table.Name) {
		return fmt.Errorf("invalid format table name %q", table.Name)
	}

	rows := make([][]string, 0, len(table.Rows)+1)
	rows = append(rows, entities.FormatColumns)
	for _, r := range table.Rows {
		rows = append(rows, []string{r.Start, r.Label, r.FmtName, r.Type})
	}

	csvPath := filepath.Join(s.dir, table.Name+".csv")
	if err := writeCSV(csvPath, rows); err != nil {
		return err
	}

	program, err := s.renderProgram(table.Name)
	if err != nil {
		return err
	}
	sasPath := filepath.Join(s.dir, table.Name+".sas")
	if err := os.WriteFile(sasPath, program, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sasPath, err)
	}

	s.track(csvPath, sasPath)
	metrics.FormatRowsWritten.WithLabelValues(s.Name(), table.Name).Add(float64(len(table.Rows)))
	logging.Info("Format table written", "store", s.Name(), "table", table.Name, "rows", len(table.Rows), "path", csvPath)
	return nil
}

func (s *FileStore) renderProgram(table string) ([]byte, error) {
	// SAS servers are usually unix hosts even when the files are written over a share
	sasDir := strings.TrimRight(filepath.ToSlash(s.sasDir), "/")

	var buf bytes.Buffer
	err := importProgram.Execute(&buf, map[string]string{
		"Table":   table,
		"Libref":  s.libref,
		"SASDir":  sasDir,
		"SASFile": path.Join(sasDir, table+".csv"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render import program for %s: %w", table, err)
	}
	return buf.Bytes(), nil
}

func (s *FileStore) track(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		if !slices.Contains(s.files, p) {
			s.files = append(s.files, p)
		}
	}
}

// Files implements FileProducer
func (s *FileStore) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}
