package cmd

import (
	"path/filepath"

	"github.com/nyashlang/nyashc/internal/ast"
)

// collectIncludePaths walks prog's statement tree for Include statements
// and resolves each Path relative to the directory containing the
// compiled file, matching the driver-level file resolution spec.md §1
// leaves to the CLI (the MIR builder lowers Include as a no-op). Included
// files are not read, so their own Include statements are not collected.
func collectIncludePaths(prog *ast.Program, sourcePath string) []string {
	dir := filepath.Dir(sourcePath)
	var out []string
	walkStmts(prog.Stmts, func(inc *ast.Include) {
		p := inc.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		out = append(out, p)
	})
	return out
}

func walkStmts(stmts []ast.Stmt, visit func(*ast.Include)) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.Include:
			visit(st)
		case *ast.If:
			walkStmts(st.Then, visit)
			walkStmts(st.Else, visit)
		case *ast.Loop:
			walkStmts(st.Body, visit)
		case *ast.TryCatch:
			walkStmts(st.Try, visit)
			for _, c := range st.Catches {
				walkStmts(c.Body, visit)
			}
			walkStmts(st.Finally, visit)
		}
	}
}
