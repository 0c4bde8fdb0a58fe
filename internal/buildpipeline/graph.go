package buildpipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/parser"
	"microvium/internal/scope"
	"microvium/internal/source"
)

// moduleNode is one file in the project's import graph: its parsed AST,
// the arena it was built in, and the import-source strings it referenced,
// resolved to sibling file paths still inside the project.
type moduleNode struct {
	path    string
	fileID  source.FileID
	program ast.ProgramID
	arenas  *ast.Builder
	imports []string // resolved, absolute paths of modules this one imports

	// model is filled in by diagnoseLayers once scope resolution has run,
	// so the entry module's Lower stage can reuse it instead of
	// re-resolving (and double-reporting its diagnostics).
	model *scope.Model
}

// discoverGraph walks the import statements reachable from entryPath,
// parsing every file it finds (spec.md §6's "Import/Export declarations
// (simple forms only)"). Results are keyed by absolute path so the same
// file reached via two different import specifiers is only parsed once.
// Each module gets its own ast.Builder and source.Interner: scope
// resolution of an import only needs the importing module's own AST (an
// import binding is addressed at runtime purely by its source string,
// spec.md §4.1's ModuleImportExportSlot), so sibling modules never need
// to share one arena the way a single compiled module's own files would.
func discoverGraph(fileSet *source.FileSet, entryPath string, maxDiagnostics int) (map[string]*moduleNode, *diag.Bag, error) {
	nodes := make(map[string]*moduleNode)
	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	queue := []string{entryPath}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if _, seen := nodes[path]; seen {
			continue
		}
		node, err := parseModule(fileSet, path, reporter)
		if err != nil {
			return nil, bag, err
		}
		nodes[path] = node
		queue = append(queue, node.imports...)
	}
	return nodes, bag, nil
}

func parseModule(fileSet *source.FileSet, path string, reporter diag.Reporter) (*moduleNode, error) {
	fileID, err := fileSet.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %q: %w", path, err)
	}
	file := fileSet.Get(fileID)

	lx := lexer.New(file, lexer.Options{Reporter: reporter})
	arenas := ast.NewBuilder(ast.Hints{})

	result := parser.ParseFile(fileSet, fileID, lx, arenas, parser.Options{MaxErrors: 1000, Reporter: reporter})

	imports := collectImportSources(arenas, result.Program, filepath.Dir(path))

	return &moduleNode{
		path:    path,
		fileID:  fileID,
		program: result.Program,
		arenas:  arenas,
		imports: imports,
	}, nil
}

// collectImportSources scans top-level import statements for their source
// strings and resolves each to an absolute, existing file path next to
// dir. A source that doesn't resolve to an on-disk module (a host- or
// runtime-supplied namespace, per spec.md §4.1's ModuleImportExportSlot)
// is left for the host VM's import resolution rather than treated as a
// missing project file.
func collectImportSources(arenas *ast.Builder, program ast.ProgramID, dir string) []string {
	prog := arenas.Programs.Get(program)
	if prog == nil {
		return nil
	}
	var out []string
	for _, stmtID := range prog.Body {
		stmt := arenas.Stmts.Get(stmtID)
		if stmt == nil || stmt.Kind != ast.StmtImport {
			continue
		}
		d := arenas.Stmts.Import(stmtID)
		src, ok := arenas.StringsInterner.Lookup(d.Source)
		if !ok {
			continue
		}
		resolved := resolveModulePath(dir, src)
		if resolved == "" {
			continue
		}
		out = append(out, resolved)
	}
	return out
}

func resolveModulePath(dir, importSource string) string {
	if filepath.IsAbs(importSource) {
		if fileExists(importSource) {
			return importSource
		}
		return ""
	}
	candidate := filepath.Join(dir, importSource)
	for _, p := range []string{candidate, candidate + ".mvms"} {
		if fileExists(p) {
			abs, err := filepath.Abs(p)
			if err == nil {
				return abs
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// topoLayers groups nodes into dependency-depth layers: every module in
// layer N only imports modules from layers < N, so every layer's modules
// can be processed concurrently once the layers before it are done. This
// is a plain breadth-first Kahn layering rather than the teacher's
// internal/project/dag package (not present in this tree) — equivalent
// result, self-contained.
func topoLayers(nodes map[string]*moduleNode) ([][]string, error) {
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for path, node := range nodes {
		if _, ok := indegree[path]; !ok {
			indegree[path] = 0
		}
		for _, dep := range node.imports {
			if _, ok := nodes[dep]; !ok {
				continue // unresolved import; not a project file
			}
			indegree[path]++
			dependents[dep] = append(dependents[dep], path)
		}
	}

	var layers [][]string
	remaining := len(indegree)
	current := make([]string, 0)
	for path, deg := range indegree {
		if deg == 0 {
			current = append(current, path)
		}
	}
	for len(current) > 0 {
		sort.Strings(current)
		layers = append(layers, current)
		remaining -= len(current)
		var next []string
		for _, path := range current {
			for _, dep := range dependents[path] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}
	if remaining != 0 {
		return nil, fmt.Errorf("import graph has a cycle among %d module(s)", remaining)
	}
	return layers, nil
}
