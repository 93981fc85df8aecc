package pluginabi

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `
[libraries.filebox]
path = "./filebox.so"
boxes = ["FileBox"]
requires_engine = ">=0.1.0, <1.0.0"

[libraries.filebox.FileBox]
type_id = 1001
abi_version = 1

[libraries.filebox.FileBox.methods]
open = { method_id = 1 }
write = { method_id = 2 }
close = { method_id = 3 }
`

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nyash.plugins.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadManifest_ParsesLibrariesAndBoxes(t *testing.T) {
	path := writeManifest(t, sampleManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	lib, ok := m.Libraries["filebox"]
	if !ok {
		t.Fatal("expected library \"filebox\"")
	}
	if lib.RequiresEngine != ">=0.1.0, <1.0.0" {
		t.Fatalf("RequiresEngine = %q", lib.RequiresEngine)
	}

	box, ok := lib.Types["FileBox"]
	if !ok {
		t.Fatal("expected box type \"FileBox\"")
	}
	if box.TypeID != 1001 {
		t.Fatalf("TypeID = %d, want 1001", box.TypeID)
	}
	if box.ABIVersion != 1 {
		t.Fatalf("ABIVersion = %d, want 1", box.ABIVersion)
	}
	if got := box.Methods["open"].MethodID; got != 1 {
		t.Fatalf("open method_id = %d, want 1", got)
	}
	if got := box.Methods["close"].MethodID; got != 3 {
		t.Fatalf("close method_id = %d, want 3", got)
	}

	resolved, err := m.LibraryPath("filebox")
	if err != nil {
		t.Fatalf("LibraryPath: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "filebox.so"); resolved != want {
		t.Fatalf("LibraryPath = %q, want %q", resolved, want)
	}
}

func TestLoadManifest_AbiVersionDefaultsToOne(t *testing.T) {
	const contents = `
[libraries.plain]
path = "plain.so"
boxes = ["PlainBox"]

[libraries.plain.PlainBox]
type_id = 2

[libraries.plain.PlainBox.methods]
`
	path := writeManifest(t, contents)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if got := m.Libraries["plain"].Types["PlainBox"].ABIVersion; got != 1 {
		t.Fatalf("ABIVersion = %d, want default 1", got)
	}
}

func TestCheckEngineVersion(t *testing.T) {
	entry := LibraryEntry{RequiresEngine: ">=0.1.0, <1.0.0"}

	if err := CheckEngineVersion(entry, "0.5.0"); err != nil {
		t.Fatalf("expected 0.5.0 to satisfy constraint: %v", err)
	}
	if err := CheckEngineVersion(entry, "1.2.0"); err == nil {
		t.Fatal("expected 1.2.0 to violate constraint")
	}

	// No constraint declared: anything satisfies it.
	if err := CheckEngineVersion(LibraryEntry{}, "9.9.9"); err != nil {
		t.Fatalf("expected no constraint to always pass: %v", err)
	}
}
