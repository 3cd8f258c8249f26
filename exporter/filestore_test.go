package exporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giygas/rug-formats/formats"
)

func TestFileStoreWriteFormat(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, "/sasprod/dw/formats/source/staging/", "fmt")

	rugcat, ruggroup := formats.BuildFormatTables(testRecords())
	for _, table := range []struct {
		name string
		err  error
	}{
		{rugcat.Name, store.WriteFormat(context.Background(), rugcat)},
		{ruggroup.Name, store.WriteFormat(context.Background(), ruggroup)},
	} {
		if table.err != nil {
			t.Fatalf("WriteFormat(%s) failed: %v", table.name, table.err)
		}
	}

	content, err := os.ReadFile(filepath.Join(dir, "ruggroup.csv"))
	if err != nil {
		t.Fatalf("Failed to read ruggroup.csv: %v", err)
	}
	wantCSV := "start,label,fmtname,type\n" +
		"RUX,Ultra-High,ruggroup,C\n" +
		"RMA,Medium,ruggroup,C\n" +
		"SE3,Other,ruggroup,C\n"
	if string(content) != wantCSV {
		t.Errorf("Unexpected ruggroup.csv:\n%s", content)
	}

	program, err := os.ReadFile(filepath.Join(dir, "rugcat.sas"))
	if err != nil {
		t.Fatalf("Failed to read rugcat.sas: %v", err)
	}
	for _, want := range []string{
		`LIBNAME fmt "/sasprod/dw/formats/source/staging";`,
		`PROC IMPORT DATAFILE="/sasprod/dw/formats/source/staging/rugcat.csv"`,
		"OUT=fmt.rugcat",
		"REPLACE;",
	} {
		if !strings.Contains(string(program), want) {
			t.Errorf("Expected %q in program:\n%s", want, program)
		}
	}

	files := store.Files()
	if len(files) != 4 {
		t.Errorf("Expected 4 tracked files, got %v", files)
	}

	// rewriting the same table does not duplicate tracked files
	if err := store.WriteFormat(context.Background(), rugcat); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if len(store.Files()) != 4 {
		t.Errorf("Expected tracked files to stay unique, got %v", store.Files())
	}
}

func TestFileStoreRejectsBadInput(t *testing.T) {
	store := NewFileStore(t.TempDir(), "", "fmt")
	rugcat, _ := formats.BuildFormatTables(testRecords())

	bad := rugcat
	bad.Name = "../escape"
	if err := store.WriteFormat(context.Background(), bad); err == nil {
		t.Error("Expected error for path-like table name")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.WriteFormat(ctx, rugcat); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
