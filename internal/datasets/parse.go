package datasets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFound is returned when a data file does not exist.
	ErrNotFound = errors.New("data file not found")
	// ErrMalformed is returned when a data file cannot be parsed.
	ErrMalformed = errors.New("malformed data file")
)

// lines returns the non-blank, non-comment lines of r split into tokens.
// Lines holding a comma or semicolon are split on those and keep empty
// cells as "" tokens; other lines are split on whitespace.
func lines(r io.Reader) ([][]string, error) {
	var out [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, fields(line))
	}
	return out, scanner.Err()
}

func fields(line string) []string {
	if !strings.ContainsAny(line, ",;") {
		return strings.Fields(line)
	}
	var out []string
	for _, f := range strings.Split(strings.ReplaceAll(line, ";", ","), ",") {
		out = append(out, strings.TrimSpace(f))
	}
	return out
}

func readLines(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return lines(f)
}

// parseFloat accepts the spellings numpy writes for missing values.
func parseFloat(tok string) (float64, error) {
	switch strings.ToLower(tok) {
	case "nan", "na", "n/a", "":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(tok, 64)
}

func parseFloats(path string, rows [][]string) ([]float64, error) {
	var out []float64
	for i, row := range rows {
		for _, tok := range row {
			v, err := parseFloat(tok)
			if err != nil {
				if i == 0 && len(out) == 0 {
					// Single header line.
					break
				}
				return nil, fmt.Errorf("%w: %s line %d: %q", ErrMalformed, path, i+1, tok)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func parseInts(path string, rows [][]string) ([]int, error) {
	var out []int
	for i, row := range rows {
		for _, tok := range row {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil || v != math.Trunc(v) {
				return nil, fmt.Errorf("%w: %s line %d: %q is not an integer", ErrMalformed, path, i+1, tok)
			}
			out = append(out, int(v))
		}
	}
	return out, nil
}

func parseBools(path string, rows [][]string) ([]bool, error) {
	var out []bool
	for i, row := range rows {
		for _, tok := range row {
			switch strings.ToLower(tok) {
			case "1", "1.0", "true", "t":
				out = append(out, true)
			case "0", "0.0", "false", "f":
				out = append(out, false)
			default:
				return nil, fmt.Errorf("%w: %s line %d: %q is not a boolean", ErrMalformed, path, i+1, tok)
			}
		}
	}
	return out, nil
}

func parseMatrix(path string, rows [][]string) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformed, path)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: %s line %d has %d columns, want %d", ErrMalformed, path, i+1, len(row), cols)
		}
		for _, tok := range row {
			v, err := parseFloat(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: %q", ErrMalformed, path, i+1, tok)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func parseLabels(rows [][]string) []string {
	var out []string
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

// Hemispheres splits joined left+right data at its midpoint.
func Hemispheres[T any](x []T) ([]T, []T, error) {
	if len(x)%2 != 0 {
		return nil, nil, fmt.Errorf("cannot split %d values into hemispheres", len(x))
	}
	half := len(x) / 2
	return x[:half:half], x[half:], nil
}
