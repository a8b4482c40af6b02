/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/InputParameters"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/mesh"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/model_problems/Prion3D"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/output"
)

type Model3D struct {
	ICFile    string
	NoOutput  bool
	Profile   bool
	Processes int
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Three dimensional prion spreading solver, reads Gmsh meshes and outputs VTK solutions",
	Long: `
Runs the implicit Fisher-Kolmogorov solver on a tetrahedral mesh, with the
unknowns distributed over a group of worker processes,

prion solve -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("solve called")
		m3d := &Model3D{}
		if m3d.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		m3d.NoOutput, _ = cmd.Flags().GetBool("noOutput")
		m3d.Profile, _ = cmd.Flags().GetBool("profile")
		m3d.Processes, _ = cmd.Flags().GetInt("processes")
		ip := processSolveInput(m3d)
		if m3d.Profile {
			defer profile.Start().Stop()
		}
		if err = RunSolve(m3d, ip); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func processSolveInput(m3d *Model3D) (ip *InputParameters.InputParameters3D) {
	var (
		err error
	)
	if len(m3d.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Brain run"
MeshFile: meshes/brain-h3.0.msh # omit and set CubeN for a structured cube
CubeN: 10
PolynomialOrder: 1
FinalTime: 1.0
Dt: 0.1
OutputEvery: 30
OutputDir: .
Processes: 4
Partitioner: metis # or block
Alpha: 2.0
DExt: 5.0
DAxn: 0.0
AxonDirection: [1, 1, 1]
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = ioutil.ReadFile(m3d.ICFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.InputParameters3D{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	if m3d.Processes > 0 {
		ip.Processes = m3d.Processes
	}
	if err = ip.Validate(); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	return
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Dt\n\t- FinalTime\n\t- Processes")
	SolveCmd.Flags().BoolP("noOutput", "n", false, "skip writing VTK snapshot files")
	SolveCmd.Flags().BoolP("profile", "p", false, "write a CPU profile for the run")
	SolveCmd.Flags().IntP("processes", "P", 0, "override the Processes count from the input file")
}

func RunSolve(m3d *Model3D, ip *InputParameters.InputParameters3D) error {
	ip.Print()

	var (
		msh *mesh.Mesh
		err error
	)
	if ip.MeshFile != "" {
		if msh, err = mesh.ReadGmsh22(ip.MeshFile); err != nil {
			return err
		}
	} else {
		msh = mesh.UnitCube(ip.CubeN)
	}
	fmt.Printf("mesh: %d vertices, %d tets\n", msh.NumVerts(), msh.NumElements())

	var epart []int
	switch ip.Partitioner {
	case "metis":
		if epart, err = mesh.PartitionMetis(msh, ip.Processes); err != nil {
			return err
		}
	default:
		epart = mesh.PartitionBlock(msh.NumElements(), ip.Processes)
	}

	cfg := Prion3D.Config{
		DExt:              ip.DExt,
		DAxn:              ip.DAxn,
		AxonDirection:     ip.AxonDirection,
		Degree:            ip.PolynomialOrder,
		FinalTime:         ip.FinalTime,
		Dt:                ip.Dt,
		OutputEvery:       ip.OutputEvery,
		AbortOnDivergence: ip.AbortOnDivergence,
	}
	if ip.Alpha != 0 {
		cfg.Alpha = Prion3D.ConstantCoefficient(ip.Alpha)
	}
	if ip.MeshFile != "" {
		cfg.InitialCondition = Prion3D.DefaultBrainBump()
	}

	var sink Prion3D.Sink
	if m3d.NoOutput {
		sink = &output.Discard{}
	} else {
		part, err := dofs.Distribute(msh, cfg.Degree, epart, ip.Processes)
		if err != nil {
			return err
		}
		sink = &output.VTKWriter{Dir: ip.OutputDir, Mesh: msh, Part: part}
		return Prion3D.RunPartitioned(cfg, msh, part, sink)
	}
	return Prion3D.Run(cfg, msh, epart, ip.Processes, sink)
}
