// Package buildpipeline is the ambient build driver wrapping the core
// compiler (SPEC_FULL.md §2 stage 6): it resolves a microvium.toml
// manifest to a source file set, drives file loading, invokes the AST
// Provider, Scope Analyzer, IL Compiler, Host VM and Snapshot Encoder in
// order, collects diagnostics from every stage into one diag.Bag, and
// reports phase timings.
package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"microvium/internal/buildcache"
	"microvium/internal/diag"
	"microvium/internal/hostvm"
	"microvium/internal/il"
	"microvium/internal/project"
	"microvium/internal/scope"
	"microvium/internal/snapshot"
	"microvium/internal/source"
)

// Options configures one build run.
type Options struct {
	// ProjectDir is where FindManifest starts looking for microvium.toml.
	ProjectDir string
	// Backend selects the compilation backend. Only BackendVM is
	// implemented; BackendLLVM is reserved for a future native-code
	// backend and Run rejects it explicitly rather than silently
	// falling back to the interpreter.
	Backend Backend
	// Jobs bounds how many modules are scope-resolved concurrently per
	// import-graph layer. Zero means runtime.GOMAXPROCS(0).
	Jobs int
	// Sink receives progress events as each stage starts and finishes.
	// May be nil.
	Sink ProgressSink
	// Cache, if set, lets Compile skip Lower (IL compilation) for an entry
	// module whose content (and its imports' content) hasn't changed since
	// the last build; scope resolution still runs for every module. May be
	// nil to always recompile.
	Cache *buildcache.Cache
}

// Result is the outcome of one successful build.
type Result struct {
	Manifest    *project.Manifest
	FileSet     *source.FileSet
	Diagnostics *diag.Bag
	Snapshot    *snapshot.Result
	OutputPath  string
	Timings     Timings
}

// CompileResult is the outcome of compiling a project down to IL: what
// `microvium run` and `microvium disasm` need without paying for Run's
// evaluate-and-snapshot tail. EntryPath is the absolute path Unit was
// compiled from, so a caller rendering diagnostics or a disassembly
// listing can label output the same way Run's own events do. FileSet is
// the same one Diagnostics' spans resolve against — a caller formatting
// them with internal/diagfmt needs it alongside the bag.
type CompileResult struct {
	Manifest    *project.Manifest
	EntryPath   string
	FileSet     *source.FileSet
	Unit        *il.Unit
	Interner    *source.Interner
	Diagnostics *diag.Bag
	Timings     Timings
}

// Compile loads the manifest, discovers and parses the project's import
// graph, resolves scopes, and lowers the entry module to IL. It stops
// short of evaluating the module or encoding a snapshot — Run continues
// past this point for `microvium build`; `microvium run` and `microvium
// disasm` call Compile directly and drive internal/hostvm or their own
// printer against the result themselves.
func Compile(ctx context.Context, opts Options) (*CompileResult, error) {
	manifest, ok, err := project.Load(opts.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("buildpipeline: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("buildpipeline: no microvium.toml found above %q", opts.ProjectDir)
	}

	var timings Timings
	sink := opts.Sink

	entryPath, err := filepath.Abs(manifest.EntryPath())
	if err != nil {
		return nil, fmt.Errorf("buildpipeline: %w", err)
	}

	fileSet := source.NewFileSetWithBase(manifest.Root)

	parseStart := time.Now()
	emit(sink, Event{Stage: StageParse, Status: StatusWorking})
	nodes, bag, err := discoverGraph(fileSet, entryPath, manifest.Build.MaxDiagnostics)
	if err != nil {
		emit(sink, Event{Stage: StageParse, Status: StatusError, Err: err})
		return nil, err
	}
	layers, err := topoLayers(nodes)
	if err != nil {
		emit(sink, Event{Stage: StageParse, Status: StatusError, Err: err})
		return nil, err
	}
	if err := diagnoseLayers(ctx, nodes, layers, opts.Jobs, bag, manifest.Build.MaxDiagnostics, sink); err != nil {
		return nil, err
	}
	timings.Set(StageParse, time.Since(parseStart))
	emit(sink, Event{Stage: StageParse, Status: StatusDone, Elapsed: timings.Duration(StageParse)})

	result := &CompileResult{Manifest: manifest, EntryPath: entryPath, FileSet: fileSet, Diagnostics: bag, Timings: timings}

	if bag.HasErrors() {
		emit(sink, Event{Stage: StageDiagnose, Status: StatusError})
		return result, fmt.Errorf("buildpipeline: %d diagnostic(s) reported against the project", bag.Len())
	}
	emit(sink, Event{Stage: StageDiagnose, Status: StatusDone})

	entry := nodes[entryPath]
	cacheKey := contentHash(nodes, entryPath)

	lowerStart := time.Now()
	emit(sink, Event{File: entryPath, Stage: StageLower, Status: StatusWorking})
	unit, interner, err := lowerEntry(entry, cacheKey, opts.Cache, bag)
	if err != nil {
		emit(sink, Event{File: entryPath, Stage: StageLower, Status: StatusError, Err: err})
		return result, err
	}
	result.Unit, result.Interner = unit, interner
	if bag.HasErrors() {
		emit(sink, Event{File: entryPath, Stage: StageLower, Status: StatusError})
		return result, fmt.Errorf("buildpipeline: %d diagnostic(s) reported while lowering the entry module", bag.Len())
	}
	result.Timings.Set(StageLower, time.Since(lowerStart))
	emit(sink, Event{File: entryPath, Stage: StageLower, Status: StatusDone, Elapsed: result.Timings.Duration(StageLower)})

	return result, nil
}

// Run executes the full pipeline: compile the entry module to IL,
// evaluate it, encode its snapshot, and write the snapshot to the
// manifest's configured output path.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Backend == "" {
		opts.Backend = BackendVM
	}
	if opts.Backend != BackendVM {
		return nil, fmt.Errorf("buildpipeline: backend %q is not implemented; only %q is available", opts.Backend, BackendVM)
	}

	compiled, err := Compile(ctx, opts)
	if compiled == nil {
		return nil, err
	}
	result := &Result{Manifest: compiled.Manifest, FileSet: compiled.FileSet, Diagnostics: compiled.Diagnostics, Timings: compiled.Timings}
	if err != nil {
		return result, err
	}

	sink := opts.Sink
	entryPath := compiled.EntryPath
	manifest := compiled.Manifest

	buildStart := time.Now()
	emit(sink, Event{File: entryPath, Stage: StageBuild, Status: StatusWorking})
	vm := hostvm.Create(compiled.Interner, nil)
	if err := vm.EvaluateModule(compiled.Unit); err != nil {
		emit(sink, Event{File: entryPath, Stage: StageBuild, Status: StatusError, Err: err})
		return result, err
	}
	result.Timings.Set(StageBuild, time.Since(buildStart))
	emit(sink, Event{File: entryPath, Stage: StageBuild, Status: StatusDone, Elapsed: result.Timings.Duration(StageBuild)})

	linkStart := time.Now()
	emit(sink, Event{File: entryPath, Stage: StageLink, Status: StatusWorking})
	info := vm.CreateSnapshotInfo()
	snap, err := snapshot.Encode(info.Info)
	if err != nil {
		emit(sink, Event{File: entryPath, Stage: StageLink, Status: StatusError, Err: err})
		return result, err
	}
	outPath := manifest.OutPath()
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return result, fmt.Errorf("buildpipeline: %w", err)
	}
	if err := os.WriteFile(outPath, snap.Bytes, 0o644); err != nil {
		return result, fmt.Errorf("buildpipeline: failed to write snapshot to %q: %w", outPath, err)
	}
	result.Timings.Set(StageLink, time.Since(linkStart))
	emit(sink, Event{File: entryPath, Stage: StageLink, Status: StatusDone, Elapsed: result.Timings.Duration(StageLink)})

	result.Snapshot = snap
	result.OutputPath = outPath
	return result, nil
}

// diagnoseLayers runs scope resolution over every module in the import
// graph, layer by layer, fanning the modules within one layer out across
// goroutines via errgroup (grounded on the teacher's internal/driver/
// parallel.go pattern: a pre-sized, index-addressed result slice needs no
// mutex). Only the entry module's result is carried forward to IL
// compilation; every module still gets full parse+scope diagnostics
// merged into bag, so an unreachable-at-runtime sibling module with a
// syntax error is still reported.
func diagnoseLayers(ctx context.Context, nodes map[string]*moduleNode, layers [][]string, jobs int, bag *diag.Bag, maxDiagnostics int, sink ProgressSink) error {
	for _, layer := range layers {
		bags := make([]*diag.Bag, len(layer))
		g, gctx := errgroup.WithContext(ctx)
		limit := jobs
		if limit <= 0 {
			limit = runtime.GOMAXPROCS(0)
		}
		g.SetLimit(min(limit, len(layer)))
		for i, path := range layer {
			i, path := i, path
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				node := nodes[path]
				moduleBag := diag.NewBag(maxDiagnostics)
				emit(sink, Event{File: path, Stage: StageDiagnose, Status: StatusWorking})
				model := scope.Resolve(node.program, node.arenas, diag.BagReporter{Bag: moduleBag})
				scope.AssignSlots(model, node.arenas.StringsInterner)
				node.model = model
				bags[i] = moduleBag
				status := StatusDone
				if moduleBag.HasErrors() {
					status = StatusError
				}
				emit(sink, Event{File: path, Stage: StageDiagnose, Status: status})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, b := range bags {
			bag.Merge(b)
		}
	}
	return nil
}

// contentHash keys the build cache off the entry module's own file
// content plus every module it transitively imports, sorted so the key
// doesn't depend on import-statement order.
func contentHash(nodes map[string]*moduleNode, entryPath string) buildcache.Digest {
	paths := make([]string, 0, len(nodes))
	for p := range nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	// entryPath goes first so the hash also captures which module is the
	// entry, not just which files exist.
	ordered := make([]string, 0, len(paths))
	ordered = append(ordered, entryPath)
	for _, p := range paths {
		if p != entryPath {
			ordered = append(ordered, p)
		}
	}
	contents := make([][]byte, len(ordered))
	for i, p := range ordered {
		contents[i], _ = os.ReadFile(p)
	}
	return buildcache.HashSources(contents...)
}

// lowerEntry produces the entry module's IL Unit and the interner its
// operations resolve names against, reusing a cached copy when the
// project's content hash matches and recompiling (updating the cache)
// otherwise.
func lowerEntry(entry *moduleNode, key buildcache.Digest, cache *buildcache.Cache, bag *diag.Bag) (*il.Unit, *source.Interner, error) {
	if cache != nil {
		if cached, ok, err := cache.Get(key); err == nil && ok {
			unit, interner := buildcache.Restore(cached)
			return unit, interner, nil
		}
	}

	unit, err := il.Compile(entry.program, entry.arenas, entry.model, diag.BagReporter{Bag: bag})
	if err != nil {
		return nil, nil, err
	}
	if bag.HasErrors() {
		return unit, entry.arenas.StringsInterner, nil
	}
	if cache != nil {
		_ = cache.Put(key, &buildcache.Entry{
			SourcePath: entry.path,
			Strings:    buildcache.Snapshot(entry.arenas.StringsInterner),
			Unit:       *unit,
		})
	}
	return unit, entry.arenas.StringsInterner, nil
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
