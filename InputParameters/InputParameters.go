package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type InputParameters3D struct {
	Title             string     `yaml:"Title"`
	MeshFile          string     `yaml:"MeshFile"` // Gmsh v2.2 file; empty selects the structured cube
	CubeN             int        `yaml:"CubeN"`    // subdivisions per axis; YAML 1.1 reads a bare N key as a boolean
	PolynomialOrder   int        `yaml:"PolynomialOrder"`
	FinalTime         float64    `yaml:"FinalTime"`
	Dt                float64    `yaml:"Dt"`
	OutputEvery       int        `yaml:"OutputEvery"`
	OutputDir         string     `yaml:"OutputDir"`
	Processes         int        `yaml:"Processes"`
	Partitioner       string     `yaml:"Partitioner"` // "block" or "metis"
	Alpha             float64    `yaml:"Alpha"`
	DExt              float64    `yaml:"DExt"`
	DAxn              float64    `yaml:"DAxn"`
	AxonDirection     [3]float64 `yaml:"AxonDirection"`
	AbortOnDivergence bool       `yaml:"AbortOnDivergence"`
}

func (ip *InputParameters3D) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParameters3D) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("%8.5f\t\t= Dt\n", ip.Dt)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", ip.PolynomialOrder)
	fmt.Printf("[%d]\t\t\t\t= Processes\n", ip.Processes)
	if ip.MeshFile != "" {
		fmt.Printf("[%s]\t\t= Mesh File\n", ip.MeshFile)
	} else {
		fmt.Printf("[%d]\t\t\t\t= Cube Subdivisions\n", ip.CubeN)
	}
	fmt.Printf("[%s]\t\t\t= Partitioner\n", ip.Partitioner)
	fmt.Printf("%8.5f\t\t= Alpha\n", ip.Alpha)
	fmt.Printf("%8.5f\t\t= DExt\n", ip.DExt)
	fmt.Printf("%8.5f\t\t= DAxn\n", ip.DAxn)
}

func (ip *InputParameters3D) Validate() error {
	switch {
	case ip.Processes < 1:
		return fmt.Errorf("Processes must be at least 1, have %d", ip.Processes)
	case ip.MeshFile == "" && ip.CubeN < 1:
		return fmt.Errorf("need a MeshFile or a positive CubeN, have CubeN=%d", ip.CubeN)
	case ip.Partitioner != "" && ip.Partitioner != "block" && ip.Partitioner != "metis":
		return fmt.Errorf("unknown Partitioner %q, have block and metis", ip.Partitioner)
	case ip.PolynomialOrder != 1 && ip.PolynomialOrder != 2:
		return fmt.Errorf("PolynomialOrder must be 1 or 2, have %d", ip.PolynomialOrder)
	}
	return nil
}
