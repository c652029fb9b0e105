package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxMatrixSide bounds each matrix dimension read from disk.
const MaxMatrixSide = 8192

// Matrix holds connection costs between the right attribute of a word and the
// left attribute of the word that follows it. Cells that are never set cost 0,
// and attributes outside the matrix also cost 0.
type Matrix struct {
	rights int
	lefts  int
	costs  []int32
	min    int
}

// NewMatrix allocates a zero matrix of the given size.
func NewMatrix(rights, lefts int) *Matrix {
	if rights < 0 {
		rights = 0
	}
	if lefts < 0 {
		lefts = 0
	}
	return &Matrix{
		rights: rights,
		lefts:  lefts,
		costs:  make([]int32, rights*lefts),
	}
}

// Set stores the cost for prevRight -> nextLeft. Out of range pairs are ignored.
func (m *Matrix) Set(prevRight, nextLeft uint16, cost int) {
	if int(prevRight) >= m.rights || int(nextLeft) >= m.lefts {
		return
	}
	m.costs[int(prevRight)*m.lefts+int(nextLeft)] = int32(cost)
	if cost < m.min {
		m.min = cost
	}
}

// Cost returns the connection cost for prevRight -> nextLeft.
func (m *Matrix) Cost(prevRight, nextLeft uint16) int {
	if m == nil || int(prevRight) >= m.rights || int(nextLeft) >= m.lefts {
		return 0
	}
	return int(m.costs[int(prevRight)*m.lefts+int(nextLeft)])
}

// MinCost is a lower bound of every value Cost can return. Never positive.
func (m *Matrix) MinCost() int {
	if m == nil {
		return 0
	}
	return m.min
}

// Size returns the matrix dimensions.
func (m *Matrix) Size() (rights, lefts int) {
	if m == nil {
		return 0, 0
	}
	return m.rights, m.lefts
}

// ReadMatrix parses the text matrix format: a "rights lefts" header line,
// then "prevRight nextLeft cost" lines. '#' starts a comment line.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	var m *Matrix
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if m == nil {
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: matrix header needs 2 fields, got %d", lineNo, len(fields))
			}
			rights, err1 := strconv.Atoi(fields[0])
			lefts, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: invalid matrix header %q", lineNo, line)
			}
			if rights <= 0 || lefts <= 0 || rights > MaxMatrixSide || lefts > MaxMatrixSide {
				return nil, fmt.Errorf("line %d: matrix size %dx%d out of range", lineNo, rights, lefts)
			}
			m = NewMatrix(rights, lefts)
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: matrix row needs 3 fields, got %d", lineNo, len(fields))
		}
		right, err1 := strconv.Atoi(fields[0])
		left, err2 := strconv.Atoi(fields[1])
		cost, err3 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("line %d: invalid matrix row %q", lineNo, line)
		}
		if right < 0 || left < 0 || right >= m.rights || left >= m.lefts {
			return nil, fmt.Errorf("line %d: attribute pair %d,%d outside %dx%d", lineNo, right, left, m.rights, m.lefts)
		}
		m.Set(uint16(right), uint16(left), cost)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("empty matrix")
	}
	return m, nil
}
