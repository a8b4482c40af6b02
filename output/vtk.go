// Package output writes solution snapshots to disk in legacy VTK format,
// one file per frame, readable by ParaView as a time series.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/mesh"
)

// Discard counts snapshots without writing anything, for dry runs and tests.
type Discard struct {
	Frames int
}

func (d *Discard) WriteSnapshot(int, float64, string, []float64) error {
	d.Frames++
	return nil
}

// VTKWriter emits output-%04d.vtk files into Dir. The mesh and DOF
// partition fix the point and cell blocks; only the attached scalar field
// changes per frame.
type VTKWriter struct {
	Dir  string
	Mesh *mesh.Mesh
	Part *dofs.Partition
}

// quadratic tet node order used by VTK cell type 24: the 4 vertices, then
// edge midpoints in the sequence 01, 12, 02, 03, 13, 23
var vtkQuadraticEdgeOrder = [6]int{0, 3, 1, 2, 4, 5}

func (w *VTKWriter) WriteSnapshot(frame int, time float64, name string, field []float64) error {
	if len(field) != w.Part.NDofs {
		return fmt.Errorf("field has %d entries, partition has %d dofs", len(field), w.Part.NDofs)
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("output-%04d.vtk", frame))
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	b := bufio.NewWriter(f)
	fmt.Fprintf(b, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(b, "%s at t=%g\n", name, time)
	fmt.Fprintf(b, "ASCII\nDATASET UNSTRUCTURED_GRID\n")

	// support points double as VTK points so the field maps 1:1
	fmt.Fprintf(b, "POINTS %d double\n", w.Part.NDofs)
	for _, p := range w.Part.Coords {
		fmt.Fprintf(b, "%g %g %g\n", p[0], p[1], p[2])
	}

	ne := w.Mesh.NumElements()
	npts := w.Part.DofsPerElem
	fmt.Fprintf(b, "CELLS %d %d\n", ne, ne*(npts+1))
	for k := 0; k < ne; k++ {
		ed := w.Part.ElemDofs[k]
		fmt.Fprintf(b, "%d", npts)
		for i := 0; i < 4; i++ {
			fmt.Fprintf(b, " %d", ed[i])
		}
		if w.Part.Degree == 2 {
			for _, e := range vtkQuadraticEdgeOrder {
				fmt.Fprintf(b, " %d", ed[4+e])
			}
		}
		fmt.Fprintf(b, "\n")
	}

	cellType := 10 // linear tetrahedron
	if w.Part.Degree == 2 {
		cellType = 24 // quadratic tetrahedron
	}
	fmt.Fprintf(b, "CELL_TYPES %d\n", ne)
	for k := 0; k < ne; k++ {
		fmt.Fprintf(b, "%d\n", cellType)
	}

	fmt.Fprintf(b, "POINT_DATA %d\n", w.Part.NDofs)
	fmt.Fprintf(b, "SCALARS %s double 1\nLOOKUP_TABLE default\n", name)
	for _, v := range field {
		fmt.Fprintf(b, "%g\n", v)
	}
	// close errors carry deferred write failures on some filesystems
	if err := b.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
