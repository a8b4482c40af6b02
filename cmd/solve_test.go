package cmd

import (
	"testing"

	"github.com/magiconair/properties/assert"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/InputParameters"
)

func TestSolveInput(t *testing.T) {
	var (
		err error
	)
	fileInput := []byte(`
Title: Test Case
CubeN: 8
PolynomialOrder: 2
FinalTime: 1.0
Dt: 0.1
OutputEvery: 30
Processes: 4
Partitioner: block
Alpha: 2.0
DExt: 5.0
AxonDirection: [1, 1, 1]
`)
	var input InputParameters.InputParameters3D
	if err = input.Parse(fileInput); err != nil {
		panic(err)
	}
	assert.Equal(t, input.Dt, 0.1)
	assert.Equal(t, input.CubeN, 8)
	assert.Equal(t, input.Processes, 4)
	assert.Equal(t, input.AxonDirection, [3]float64{1, 1, 1})
	input.Print()
	assert.Equal(t, input.FinalTime, 1.)
	if err = input.Validate(); err != nil {
		panic(err)
	}
}
