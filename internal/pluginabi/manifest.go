package pluginabi

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// EngineVersion is the toolchain's own semver, checked against each
// library's optional requires_engine constraint (SPEC_FULL.md §4.12).
const EngineVersion = "1.0.0"

// Manifest is the decoded wire manifest (spec.md §6): a declarative mapping
// from library name to its path and the Box types/methods it exposes.
type Manifest struct {
	Libraries map[string]LibraryEntry

	// dir is the manifest file's own directory, against which relative
	// library paths resolve (spec.md §6).
	dir string
}

type LibraryEntry struct {
	Path           string
	Boxes          []string
	RequiresEngine string
	Types          map[string]BoxTypeSpec
}

type BoxTypeSpec struct {
	TypeID     uint32
	ABIVersion uint32
	Methods    map[string]MethodSpec
}

type MethodSpec struct {
	MethodID uint32
}

// rawLibrary mirrors one libraries.<lib_name> table. The fixed fields
// (path/boxes/requires_engine) decode directly; each Box type name is a
// dynamic key, so its table is captured as a toml.Primitive and decoded
// a second time against rawBoxType once the Box names are known.
type rawLibrary struct {
	Path           string                     `toml:"path"`
	Boxes          []string                   `toml:"boxes"`
	RequiresEngine string                     `toml:"requires_engine"`
	Rest           map[string]toml.Primitive `toml:"-"`
}

type rawBoxType struct {
	TypeID     uint32                    `toml:"type_id"`
	ABIVersion uint32                    `toml:"abi_version"`
	Methods    map[string]rawMethodSpec `toml:"methods"`
}

type rawMethodSpec struct {
	MethodID uint32 `toml:"method_id"`
}

// LoadManifest parses a wire manifest file (spec.md §6), grounded on the
// teacher's practice of decoding TOML with BurntSushi/toml rather than a
// hand-rolled parser (SPEC_FULL.md §4.11). Box type tables are decoded in
// two passes since their table names are the dynamic Box names listed in
// each library's "boxes" array, not a fixed struct field set.
func LoadManifest(path string) (*Manifest, error) {
	var doc struct {
		Libraries map[string]toml.Primitive `toml:"libraries"`
	}
	md, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("pluginabi: decode manifest %s: %w", path, err)
	}

	m := &Manifest{Libraries: make(map[string]LibraryEntry), dir: filepath.Dir(path)}
	for lib, prim := range doc.Libraries {
		var rl rawLibrary
		if err := md.PrimitiveDecode(prim, &rl); err != nil {
			return nil, fmt.Errorf("pluginabi: decode library %q: %w", lib, err)
		}

		var table map[string]toml.Primitive
		if err := md.PrimitiveDecode(prim, &table); err != nil {
			return nil, fmt.Errorf("pluginabi: decode library %q boxes: %w", lib, err)
		}

		le := LibraryEntry{
			Path:           rl.Path,
			Boxes:          rl.Boxes,
			RequiresEngine: rl.RequiresEngine,
			Types:          make(map[string]BoxTypeSpec),
		}
		for _, box := range rl.Boxes {
			boxPrim, ok := table[box]
			if !ok {
				return nil, fmt.Errorf("pluginabi: library %q declares box %q with no table", lib, box)
			}
			var rb rawBoxType
			rb.ABIVersion = 1
			if err := md.PrimitiveDecode(boxPrim, &rb); err != nil {
				return nil, fmt.Errorf("pluginabi: decode box %q in library %q: %w", box, lib, err)
			}
			spec := BoxTypeSpec{TypeID: rb.TypeID, ABIVersion: rb.ABIVersion, Methods: make(map[string]MethodSpec)}
			for name, ms := range rb.Methods {
				spec.Methods[name] = MethodSpec{MethodID: ms.MethodID}
			}
			le.Types[box] = spec
		}
		m.Libraries[lib] = le
	}
	return m, nil
}

// LibraryPath resolves a library's path against the manifest's own
// directory when relative (spec.md §6).
func (m *Manifest) LibraryPath(lib string) (string, error) {
	entry, ok := m.Libraries[lib]
	if !ok {
		return "", fmt.Errorf("pluginabi: unknown library %q", lib)
	}
	if filepath.IsAbs(entry.Path) {
		return entry.Path, nil
	}
	return filepath.Join(m.dir, entry.Path), nil
}

// CheckEngineVersion validates a library's requires_engine semver range
// against the toolchain's own version (SPEC_FULL.md §4.12), using
// Masterminds/semver the way the teacher's package manager validates
// dependency version ranges.
func CheckEngineVersion(entry LibraryEntry, engineVersion string) error {
	if entry.RequiresEngine == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(entry.RequiresEngine)
	if err != nil {
		return fmt.Errorf("pluginabi: invalid requires_engine constraint %q: %w", entry.RequiresEngine, err)
	}
	v, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("pluginabi: invalid engine version %q: %w", engineVersion, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("pluginabi: engine %s does not satisfy requires_engine %q", engineVersion, entry.RequiresEngine)
	}
	return nil
}
