package sweep

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/dbscan-sweep/internal/fsutil"
	"github.com/banshee-data/dbscan-sweep/internal/monitoring"
)

// FormatEps renders eps the way the report and CSV print it: the shortest
// decimal that round-trips, so 1 prints as "1" and 1.5 as "1.5".
func FormatEps(eps float64) string {
	return strconv.FormatFloat(eps, 'f', -1, 64)
}

// ReportWriter writes the plain-text sweep report:
//
//	Size of data set: 4
//	Epsilon: 1.5 Minimum Points: 2
//	0 0 0 -1
//
// Each label is followed by a single space and each block ends with a blank
// line. Failed combinations are left out.
type ReportWriter struct {
	w *bufio.Writer
}

// NewReportWriter creates a ReportWriter on w.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the dataset size line.
func (r *ReportWriter) WriteHeader(points int) {
	fmt.Fprintf(r.w, "Size of data set: %d\n", points)
}

// WriteResult writes one combination block. It reports whether the block was
// written; failed results are skipped.
func (r *ReportWriter) WriteResult(res Result) bool {
	if !res.OK() {
		return false
	}
	fmt.Fprintf(r.w, "Epsilon: %s Minimum Points: %d\n", FormatEps(res.Params.Eps), res.Params.MinPts)
	var buf []byte
	for _, l := range res.Assignment.Labels {
		buf = strconv.AppendInt(buf[:0], int64(l), 10)
		buf = append(buf, ' ')
		r.w.Write(buf)
	}
	r.w.WriteString("\n\n")
	return true
}

// Flush flushes buffered output and returns the first write error.
func (r *ReportWriter) Flush() error {
	return r.w.Flush()
}

// WriteReport writes the complete report for results on a dataset of the
// given size.
func WriteReport(w io.Writer, points int, results []Result) error {
	rw := NewReportWriter(w)
	rw.WriteHeader(points)
	for _, res := range results {
		if !rw.WriteResult(res) {
			monitoring.Logf("[sweep] Omitting eps=%g minPts=%d from report: %v", res.Params.Eps, res.Params.MinPts, res.Err)
		}
	}
	return rw.Flush()
}

// SummaryHeader lists the CSV summary columns.
var SummaryHeader = []string{
	"eps", "min_pts", "points", "clusters", "noise",
	"largest", "mean_size", "stddev_size", "elapsed_ms", "error",
}

// CSVWriter wraps csv.Writer with methods for sweep summary output.
type CSVWriter struct {
	Summary *csv.Writer
}

// NewCSVWriter creates a new CSVWriter on summary.
func NewCSVWriter(summary io.Writer) *CSVWriter {
	return &CSVWriter{Summary: csv.NewWriter(summary)}
}

// WriteHeader writes the summary header row.
func (c *CSVWriter) WriteHeader() error {
	return c.Summary.Write(SummaryHeader)
}

// WriteRow writes one summary row. Failed combinations keep their parameters
// and error text with empty statistics.
func (c *CSVWriter) WriteRow(res Result) error {
	row := []string{
		FormatEps(res.Params.Eps),
		strconv.Itoa(res.Params.MinPts),
	}
	if !res.OK() {
		errText := "unknown failure"
		if res.Err != nil {
			errText = res.Err.Error()
		}
		row = append(row, "", "", "", "", "", "", fmt.Sprintf("%.3f", ms(res)), errText)
		return c.Summary.Write(row)
	}

	a := res.Assignment
	stats := ComputeSizeStats(a.ClusterSizes())
	row = append(row,
		strconv.Itoa(a.Len()),
		strconv.Itoa(a.NumClusters),
		strconv.Itoa(a.NoiseCount()),
		strconv.Itoa(stats.Largest),
		fmt.Sprintf("%.6f", stats.Mean),
		fmt.Sprintf("%.6f", stats.Stddev),
		fmt.Sprintf("%.3f", ms(res)),
		"",
	)
	return c.Summary.Write(row)
}

// Flush flushes the summary writer and returns any write error.
func (c *CSVWriter) Flush() error {
	c.Summary.Flush()
	return c.Summary.Error()
}

func ms(res Result) float64 {
	return float64(res.Elapsed.Microseconds()) / 1000
}

// WriteSummary writes the header and one row per result.
func WriteSummary(w io.Writer, results []Result) error {
	c := NewCSVWriter(w)
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, res := range results {
		if err := c.WriteRow(res); err != nil {
			return err
		}
	}
	return c.Flush()
}

// SaveReport writes the report to path on fsys.
func SaveReport(fsys fsutil.FileSystem, path string, points int, results []Result) error {
	return save(fsys, path, func(w io.Writer) error {
		return WriteReport(w, points, results)
	})
}

// SaveSummary writes the CSV summary to path on fsys.
func SaveSummary(fsys fsutil.FileSystem, path string, results []Result) error {
	return save(fsys, path, func(w io.Writer) error {
		return WriteSummary(w, results)
	})
}

func save(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
