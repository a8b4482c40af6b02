package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadGmsh22 reads a Gmsh MSH file in format version 2.2 (ASCII) and keeps
// its tetrahedral elements. Lower-dimensional elements (points, lines,
// surface triangles used for physical groups) are skipped.
func ReadGmsh22(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	m, err := ParseGmsh22(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// ParseGmsh22 is the reader behind ReadGmsh22, split out so tests can feed
// inline fixtures.
func ParseGmsh22(r io.Reader) (*Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	m := &Mesh{}
	nodeIndex := make(map[int]int) // gmsh node tag -> vertex id

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "$MeshFormat":
			if err := readMeshFormat22(scanner); err != nil {
				return nil, err
			}
		case "$Nodes":
			if err := readNodes22(scanner, m, nodeIndex); err != nil {
				return nil, err
			}
		case "$Elements":
			if err := readElements22(scanner, m, nodeIndex); err != nil {
				return nil, err
			}
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				// Skip sections we do not consume ($PhysicalNames, data blocks, ...)
				endMarker := "$End" + line[1:]
				for scanner.Scan() {
					if strings.TrimSpace(scanner.Text()) == endMarker {
						break
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	compactVerts(m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// compactVerts drops vertices only referenced by skipped surface elements.
func compactVerts(m *Mesh) {
	remap := make([]int, len(m.Verts))
	for i := range remap {
		remap[i] = -1
	}
	var kept [][3]float64
	for k := range m.EToV {
		for v, vid := range m.EToV[k] {
			if remap[vid] < 0 {
				remap[vid] = len(kept)
				kept = append(kept, m.Verts[vid])
			}
			m.EToV[k][v] = remap[vid]
		}
	}
	m.Verts = kept
}

func readMeshFormat22(scanner *bufio.Scanner) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}
	fields := strings.Fields(strings.TrimSpace(scanner.Text()))
	if len(fields) < 3 {
		return fmt.Errorf("malformed MeshFormat line: %q", scanner.Text())
	}
	if !strings.HasPrefix(fields[0], "2.") {
		return fmt.Errorf("unsupported msh format version %s, need 2.x", fields[0])
	}
	if fields[1] != "0" {
		return fmt.Errorf("binary msh files are not supported")
	}
	return nil
}

func readNodes22(scanner *bufio.Scanner, m *Mesh, nodeIndex map[int]int) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("bad node count: %v", err)
	}
	m.Verts = make([][3]float64, 0, n)
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading node %d of %d", i+1, n)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			return fmt.Errorf("malformed node line: %q", scanner.Text())
		}
		tag, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("bad node tag: %v", err)
		}
		var p [3]float64
		for d := 0; d < 3; d++ {
			if p[d], err = strconv.ParseFloat(fields[d+1], 64); err != nil {
				return fmt.Errorf("bad node coordinate: %v", err)
			}
		}
		nodeIndex[tag] = len(m.Verts)
		m.Verts = append(m.Verts, p)
	}
	return nil
}

func readElements22(scanner *bufio.Scanner, m *Mesh, nodeIndex map[int]int) error {
	const gmshTet = 4 // element type 4: 4-node tetrahedron
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("bad element count: %v", err)
	}
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading element %d of %d", i+1, n)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			return fmt.Errorf("malformed element line: %q", scanner.Text())
		}
		etype, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad element type: %v", err)
		}
		if etype != gmshTet {
			continue
		}
		ntags, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad element tag count: %v", err)
		}
		if len(fields) != 3+ntags+4 {
			return fmt.Errorf("tet element with %d fields, want %d", len(fields), 3+ntags+4)
		}
		var tet [4]int
		for v := 0; v < 4; v++ {
			tag, err := strconv.Atoi(fields[3+ntags+v])
			if err != nil {
				return fmt.Errorf("bad element vertex: %v", err)
			}
			vid, ok := nodeIndex[tag]
			if !ok {
				return fmt.Errorf("element references unknown node %d", tag)
			}
			tet[v] = vid
		}
		m.EToV = append(m.EToV, tet)
	}
	return nil
}
