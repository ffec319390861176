package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourceplane/processagent/internal/loader"
	"github.com/sourceplane/processagent/internal/model"
	"github.com/sourceplane/processagent/internal/pipeline"
	"github.com/sourceplane/processagent/internal/render"
)

// specExtensions are the file types picked up when a directory is given
var specExtensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// Runner plans a batch of part spec files and writes each result and
// program to disk.
type Runner struct {
	Pipeline *pipeline.Pipeline
	Loader   *loader.Loader
	Renderer *render.Renderer
	OutDir   string
	Format   string
	Stdout   io.Writer
	DryRun   bool
}

// FileResult is the outcome for one spec file
type FileResult struct {
	Path       string
	Result     model.PlanResult
	Err        error
	ResultPath string
}

// Summary aggregates a batch
type Summary struct {
	Valid    int
	Invalid  int
	Rejected int
	Files    []FileResult
}

// Failed reports whether any spec was rejected or produced an invalid plan
func (s Summary) Failed() bool {
	return s.Invalid > 0 || s.Rejected > 0
}

// NewRunner creates a runner that writes results in format ("json" or
// "yaml") to outDir, or next to each spec when outDir is empty
func NewRunner(p *pipeline.Pipeline, l *loader.Loader, outDir, format string, stdout io.Writer, dryRun bool) *Runner {
	return &Runner{
		Pipeline: p,
		Loader:   l,
		Renderer: render.NewRenderer(),
		OutDir:   outDir,
		Format:   format,
		Stdout:   stdout,
		DryRun:   dryRun,
	}
}

// Run plans every spec in paths (files, or directories of spec files) in
// sorted order. A spec that fails to load or normalize is recorded and
// the batch continues.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	files, err := collectSpecFiles(paths)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no part spec files found")
	}

	var summary Summary
	claimed := make(map[string]string)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fmt.Fprintf(r.Stdout, "→ Spec %s\n", path)
		var fr FileResult
		resultPath := r.resultPath(path)
		if owner, ok := claimed[resultPath]; ok {
			fr = FileResult{
				Path:       path,
				ResultPath: resultPath,
				Err:        fmt.Errorf("result path %s is already used by %s", resultPath, owner),
			}
		} else {
			claimed[resultPath] = path
			fr = r.runOne(ctx, path, resultPath)
		}
		summary.Files = append(summary.Files, fr)

		switch {
		case fr.Err != nil:
			summary.Rejected++
			fmt.Fprintf(r.Stdout, "  ✗ rejected: %v\n", fr.Err)
		case fr.Result.Valid:
			summary.Valid++
			fmt.Fprintf(r.Stdout, "  ✓ valid: %d steps (%s)\n", len(fr.Result.Plan), fr.Result.Strategy)
		default:
			summary.Invalid++
			for _, e := range fr.Result.Errors {
				fmt.Fprintf(r.Stdout, "  ✗ %s\n", e)
			}
		}
	}

	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, path, resultPath string) FileResult {
	fr := FileResult{Path: path, ResultPath: resultPath}

	spec, err := r.Loader.LoadPartSpec(path)
	if err != nil {
		fr.Err = err
		return fr
	}

	fr.Result, err = r.Pipeline.Run(ctx, spec)
	if err != nil {
		fr.Err = err
		return fr
	}

	programPath := render.ProgramPath(fr.ResultPath)
	if r.DryRun {
		fmt.Fprintf(r.Stdout, "    would write %s\n", fr.ResultPath)
		if fr.Result.GCode != nil {
			fmt.Fprintf(r.Stdout, "    would write %s\n", programPath)
		}
		return fr
	}

	if err := r.Renderer.WriteResult(fr.Result, fr.ResultPath); err != nil {
		fr.Err = err
		return fr
	}
	if _, err := r.Renderer.WriteProgram(fr.Result, programPath); err != nil {
		fr.Err = err
	}
	return fr
}

// resultPath names the result <name>.plan.<ext>, in OutDir or next to the
// spec. The infix keeps results from overwriting specs and from being
// picked up as specs on the next run.
func (r *Runner) resultPath(specPath string) string {
	ext := ".json"
	if r.Format == "yaml" {
		ext = ".yaml"
	}
	base := strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))
	if r.OutDir != "" {
		return filepath.Join(r.OutDir, base+".plan"+ext)
	}
	return filepath.Join(filepath.Dir(specPath), base+".plan"+ext)
}

func collectSpecFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !specExtensions[filepath.Ext(name)] || strings.Contains(name, ".plan.") {
				continue
			}
			full := filepath.Join(path, name)
			if !seen[full] {
				seen[full] = true
				files = append(files, full)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
