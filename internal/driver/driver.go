package driver

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ferrite/internal/analysis"
	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/observ"
	"ferrite/internal/project"
	"ferrite/internal/safety"
	"ferrite/internal/sig"
	"ferrite/internal/source"
)

// inputSuffix is what directory walks pick up. Explicit file arguments are
// accepted regardless of extension.
const inputSuffix = ".ir.json"

// Options configures a CheckPaths run.
type Options struct {
	// Signatures is the path to the function-signature TOML, "" for none.
	Signatures string
	// Annotations names one C++ source whose safety comments gate every
	// input. When empty, each input looks for a sibling <name>.cpp.
	Annotations string
	// SafetyDefault, when not ModeDefault, replaces the file-level default
	// scanned from the source.
	SafetyDefault safety.Mode
	// Jobs caps worker parallelism; 0 uses GOMAXPROCS.
	Jobs int
	// MaxDiagnostics bounds per-file collection; 0 uses the analysis default.
	MaxDiagnostics int
	// Cache short-circuits files whose inputs have not changed. Nil
	// disables caching.
	Cache *DiskCache
	// Events, when non-nil, receives progress updates for the TUI.
	Events chan<- Event
	// Timer, when non-nil, records the run's phases.
	Timer *observ.Timer
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	Cached bool
}

// Result aggregates a whole run. Merged holds every file's diagnostics in
// sorted input-path order.
type Result struct {
	FileSet *source.FileSet
	Files   []FileResult
	Merged  *diag.Bag
}

// fileWork is the per-input state prepared before the parallel phase.
// The FileSet is not safe for concurrent writes, so all file registration
// happens up front.
type fileWork struct {
	path    string
	content []byte
	loadErr error
	fileID  source.FileID
	gate    *safety.Context
	digest  project.Digest
}

// CheckPaths analyzes every input file or directory. Inputs are expanded,
// sorted, and checked in parallel; per-file failures (unreadable input,
// malformed program) become diagnostics rather than aborting the run.
func CheckPaths(ctx context.Context, paths []string, opts Options) (*Result, error) {
	maxDiagnostics := opts.MaxDiagnostics
	if maxDiagnostics <= 0 {
		maxDiagnostics = analysis.DefaultMaxDiagnostics
	}

	scanPhase := timerBegin(opts.Timer, "scan")
	files, err := ListInputs(paths)
	timerEnd(opts.Timer, scanPhase, fmt.Sprintf("%d files", len(files)))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &Result{FileSet: source.NewFileSet(), Merged: diag.NewBag(maxDiagnostics)}, nil
	}

	var sigs *sig.Store
	var cfgParts []project.Digest
	if opts.Signatures != "" {
		sigs, err = sig.Load(opts.Signatures)
		if err != nil {
			return nil, err
		}
		sigContent, err := os.ReadFile(opts.Signatures)
		if err != nil {
			return nil, err
		}
		cfgParts = append(cfgParts, project.HashBytes(sigContent))
	}
	cfgParts = append(cfgParts, project.HashBytes([]byte{byte(opts.SafetyDefault)}))

	loadPhase := timerBegin(opts.Timer, "load")
	fileSet := source.NewFileSet()

	// With --annotations one source file gates every input.
	var sharedGate *safety.Context
	var sharedID source.FileID
	var haveShared bool
	if opts.Annotations != "" {
		annotContent, err := os.ReadFile(opts.Annotations)
		if err != nil {
			return nil, err
		}
		cfgParts = append(cfgParts, project.HashBytes(annotContent))
		sharedID = fileSet.Add(opts.Annotations, annotContent, 0)
		sharedGate = applyOverrides(safety.Scan(annotContent), opts.SafetyDefault, sigs)
		haveShared = true
	}

	work := make([]fileWork, len(files))
	for i, path := range files {
		w := fileWork{path: path}
		w.content, w.loadErr = os.ReadFile(path)
		if w.loadErr == nil {
			w.digest = project.HashBytes(w.content)
		}
		switch {
		case haveShared:
			w.fileID = sharedID
			w.gate = sharedGate
		default:
			companion := companionPath(path)
			if src, err := os.ReadFile(companion); err == nil {
				w.fileID = fileSet.Add(companion, src, 0)
				w.gate = applyOverrides(safety.Scan(src), opts.SafetyDefault, sigs)
			} else {
				w.fileID = fileSet.AddVirtual(path, nil)
				w.gate = applyOverrides(safety.NewContext(), opts.SafetyDefault, sigs)
			}
		}
		work[i] = w
	}
	timerEnd(opts.Timer, loadPhase, "")

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	analyzePhase := timerBegin(opts.Timer, "analyze")
	results := make([]FileResult, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(work)))

	for i := range work {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			w := &work[i]
			emit(gctx, opts.Events, Event{Kind: EventFileStart, Path: w.path, Index: i, Total: len(work)})

			bag, cached := checkOne(w, sigs, cfgParts, opts.Cache, maxDiagnostics)
			results[i] = FileResult{Path: w.path, FileID: w.fileID, Bag: bag, Cached: cached}

			emit(gctx, opts.Events, Event{
				Kind:   EventFileDone,
				Path:   w.path,
				Index:  i,
				Total:  len(work),
				Diags:  bag.Len(),
				Cached: cached,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := diag.NewBag(maxDiagnostics)
	for i := range results {
		merged.Merge(results[i].Bag)
	}
	timerEnd(opts.Timer, analyzePhase, fmt.Sprintf("%d diagnostics", merged.Len()))

	return &Result{FileSet: fileSet, Files: results, Merged: merged}, nil
}

// checkOne runs one input end to end: cache probe, decode, analysis, cache
// fill. Input failures come back as diagnostics.
func checkOne(w *fileWork, sigs *sig.Store, cfgParts []project.Digest, cache *DiskCache, maxDiagnostics int) (*diag.Bag, bool) {
	if w.loadErr != nil {
		bag := diag.NewBag(maxDiagnostics)
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.DrvReadError,
			Message:  "failed to read input: " + w.loadErr.Error(),
		})
		return bag, false
	}

	key := project.Combine(w.digest, cfgParts...)
	if cache != nil {
		var payload DiskPayload
		if ok, err := cache.Get(key, &payload); err == nil && ok {
			return payloadToBag(&payload, w.fileID, maxDiagnostics), true
		}
	}

	prog, err := ir.Decode(bytes.NewReader(w.content), w.fileID)
	if err != nil {
		bag := diag.NewBag(maxDiagnostics)
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.DrvBadInput,
			Message:  err.Error(),
		})
		return bag, false
	}

	bag := analysis.CheckProgram(prog, sigs, w.gate)
	if cache != nil {
		// Best effort: a failed cache write never fails the run.
		_ = cache.Put(key, bagToPayload(w.path, bag))
	}
	return bag, false
}

// applyOverrides layers the CLI safety default and the signature store's
// per-function modes onto a scanned context. Modes written in the source win
// over [safety] entries from the signature file.
func applyOverrides(gate *safety.Context, def safety.Mode, sigs *sig.Store) *safety.Context {
	if def != safety.ModeDefault {
		gate.FileDefault = def
	}
	for _, name := range sigs.Names() {
		entry := sigs.Get(name)
		if entry == nil || entry.Safety == safety.ModeDefault {
			continue
		}
		if _, ok := gate.Overrides[name]; !ok {
			gate.Overrides[name] = entry.Safety
		}
	}
	return gate
}

// ListInputs expands files and directories into a sorted, deduplicated list.
// Exported so the TUI can size its file table before the run starts.
func ListInputs(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, inputSuffix) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return slices.Compact(files), nil
}

// companionPath derives the C++ source expected to sit next to an input:
// widget.ir.json -> widget.cpp.
func companionPath(irPath string) string {
	base := strings.TrimSuffix(irPath, inputSuffix)
	if base == irPath {
		base = strings.TrimSuffix(irPath, filepath.Ext(irPath))
	}
	return base + ".cpp"
}

func timerBegin(t *observ.Timer, name string) int {
	if t == nil {
		return -1
	}
	return t.Begin(name)
}

func timerEnd(t *observ.Timer, idx int, note string) {
	if t == nil {
		return
	}
	t.End(idx, note)
}
