package chart

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/dbscan-sweep/internal/dataset"
	"github.com/banshee-data/dbscan-sweep/internal/fsutil"
	"github.com/banshee-data/dbscan-sweep/internal/monitoring"
	"github.com/banshee-data/dbscan-sweep/internal/sweep"
)

// SweepPageName is the file SaveSweep writes the sweep page to.
const SweepPageName = "sweep.html"

// PNGName returns the file name of the PNG for one combination.
func PNGName(r sweep.Result) string {
	return fmt.Sprintf("eps_%s_minpts_%d.png", sweep.FormatEps(r.Params.Eps), r.Params.MinPts)
}

// SaveSweep writes the sweep page and one PNG per successful combination
// into dir and returns the paths written. A combination repeated in results
// is drawn once.
func SaveSweep(fsys fsutil.FileSystem, dir string, ds *dataset.Dataset, results []sweep.Result) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart dir: %w", err)
	}

	pagePath := filepath.Join(dir, SweepPageName)
	if err := writeFile(fsys, pagePath, func(w io.Writer) error {
		return RenderSweepHTML(w, ds, results)
	}); err != nil {
		return nil, err
	}
	written := []string{pagePath}
	seen := make(map[string]bool, len(results))

	for _, r := range results {
		if !r.OK() {
			continue
		}
		name := PNGName(r)
		if seen[name] {
			monitoring.Logf("[chart] Skipping repeated combination %s", name)
			continue
		}
		seen[name] = true
		p := filepath.Join(dir, name)
		if err := writeFile(fsys, p, func(w io.Writer) error {
			return WriteAssignmentPNG(w, ds, r.Assignment)
		}); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	monitoring.Logf("[chart] Wrote %d chart files to %s", len(written), dir)
	return written, nil
}

func writeFile(fsys fsutil.FileSystem, name string, render func(io.Writer) error) error {
	f, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}
