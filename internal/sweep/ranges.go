// Package sweep runs DBSCAN over a grid of (eps, minPts) combinations against
// one shared neighbourhood index, and writes the text report and CSV summary.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/dbscan-sweep/internal/cluster"
)

// MaxValues caps the values a single range may generate.
const MaxValues = 10000

// MaxCombinations caps the size of a sweep grid.
const MaxCombinations = 10000

// RangeSpec defines an inclusive floating-point eps range.
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// IntRangeSpec defines an inclusive integer minPts range.
type IntRangeSpec struct {
	Min  int
	Max  int
	Step int
}

// splitRange splits "min:max:step" into its three trimmed parts.
func splitRange(s string) ([3]string, error) {
	var out [3]string
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return out, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out, nil
}

// ParseRangeSpec parses a "min:max:step" string into a RangeSpec.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts, err := splitRange(s)
	if err != nil {
		return RangeSpec{}, err
	}
	var vals [3]float64
	for i, name := range []string{"min", "max", "step"} {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return RangeSpec{}, fmt.Errorf("invalid %s value %q: %w", name, parts[i], err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return RangeSpec{}, fmt.Errorf("invalid %s value %q: must be finite", name, parts[i])
		}
		vals[i] = v
	}
	if vals[2] <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %g", vals[2])
	}
	return RangeSpec{Min: vals[0], Max: vals[1], Step: vals[2]}, nil
}

// ParseIntRangeSpec parses a "min:max:step" string into an IntRangeSpec.
func ParseIntRangeSpec(s string) (IntRangeSpec, error) {
	parts, err := splitRange(s)
	if err != nil {
		return IntRangeSpec{}, err
	}
	var vals [3]int
	for i, name := range []string{"min", "max", "step"} {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return IntRangeSpec{}, fmt.Errorf("invalid %s value %q: %w", name, parts[i], err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 {
		return IntRangeSpec{}, fmt.Errorf("step must be positive, got %d", vals[2])
	}
	return IntRangeSpec{Min: vals[0], Max: vals[1], Step: vals[2]}, nil
}

// GenerateRange returns min, min+step, ... up to max inclusive. Values are
// rounded to cluster.DistancePrecision decimals, the precision distances are
// compared at, so that accumulated steps such as 0.1+0.2 print cleanly.
// Steps finer than that precision collapse onto the same value; repeats are
// dropped. It returns nil when the range is empty or would exceed MaxValues.
func GenerateRange(min, max, step float64) []float64 {
	if step <= 0 || min > max {
		return nil
	}
	count := int((max-min)/step) + 1
	if count > MaxValues || count < 0 {
		return nil
	}
	limit := cluster.RoundDistance(max)
	result := make([]float64, 0, count)
	for i := 0; i <= count && len(result) < MaxValues; i++ {
		// Multiply rather than accumulate so error does not grow with i.
		v := cluster.RoundDistance(min + float64(i)*step)
		if v > limit {
			break
		}
		if n := len(result); n > 0 && result[n-1] == v {
			continue
		}
		result = append(result, v)
	}
	return result
}

// GenerateIntRange returns min, min+step, ... up to max inclusive, or nil when
// the range is empty or would exceed MaxValues.
func GenerateIntRange(min, max, step int) []int {
	if step <= 0 || min > max {
		return nil
	}
	count := (max-min)/step + 1
	if count > MaxValues || count < 0 {
		return nil
	}

	result := make([]int, 0, count)
	for v := min; v <= max && len(result) < count; v += step {
		result = append(result, v)
	}
	return result
}

// ParseParamList parses either a "min:max:step" range or a comma-separated
// list of eps values.
func ParseParamList(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if !strings.Contains(s, ":") {
		return ParseCSVFloat64s(s)
	}
	spec, err := ParseRangeSpec(s)
	if err != nil {
		return nil, err
	}
	values := GenerateRange(spec.Min, spec.Max, spec.Step)
	if values == nil {
		return nil, fmt.Errorf("range %q is empty or exceeds %d values", s, MaxValues)
	}
	return values, nil
}

// ParseIntParamList parses either a "min:max:step" range or a comma-separated
// list of minPts values.
func ParseIntParamList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if !strings.Contains(s, ":") {
		return ParseCSVInts(s)
	}
	spec, err := ParseIntRangeSpec(s)
	if err != nil {
		return nil, err
	}
	values := GenerateIntRange(spec.Min, spec.Max, spec.Step)
	if values == nil {
		return nil, fmt.Errorf("range %q is empty or exceeds %d values", s, MaxValues)
	}
	return values, nil
}

// Grid expands eps and minPts into the ordered list of combinations. minPts
// is the outer loop, so for eps 1,2 and minPts 2,4 the order is
// (1,2) (2,2) (1,4) (2,4). Repeated values keep their first position, so
// each combination appears once. Every combination is validated before any
// is returned.
func Grid(eps []float64, minPts []int) ([]cluster.Params, error) {
	eps, minPts = uniqueFloats(eps), uniqueInts(minPts)
	if len(eps) == 0 || len(minPts) == 0 {
		return nil, fmt.Errorf("sweep needs at least one eps and one minPts value (got %d and %d)", len(eps), len(minPts))
	}
	total := int64(len(eps)) * int64(len(minPts))
	if total > MaxCombinations {
		return nil, fmt.Errorf("parameter combinations would exceed safe limit of %d", MaxCombinations)
	}

	grid := make([]cluster.Params, 0, total)
	for _, m := range minPts {
		for _, e := range eps {
			p := cluster.Params{Eps: e, MinPts: m}
			if err := p.Validate(); err != nil {
				return nil, err
			}
			grid = append(grid, p)
		}
	}
	return grid, nil
}

func uniqueFloats(values []float64) []float64 {
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func uniqueInts(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
