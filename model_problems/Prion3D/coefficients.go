package Prion3D

import "math"

// Coefficient is a scalar field over physical space, evaluated pointwise
// during assembly and interpolation.
type Coefficient interface {
	Value(p [3]float64) float64
}

// ConstantCoefficient is a spatially uniform coefficient.
type ConstantCoefficient float64

func (c ConstantCoefficient) Value(_ [3]float64) float64 { return float64(c) }

// GaussianBump is a localized seeding profile: an isotropic Gaussian of the
// given amplitude centered at Center, truncated to the axis-aligned box
// Center ± Window. Outside the window it is identically zero, which keeps
// the initial misfolded concentration compactly supported.
type GaussianBump struct {
	Center    [3]float64
	Width     float64
	Amplitude float64
	Window    float64
}

func (g GaussianBump) Value(p [3]float64) float64 {
	var r2 float64
	for d := 0; d < 3; d++ {
		dx := p[d] - g.Center[d]
		if math.Abs(dx) > g.Window {
			return 0
		}
		r2 += g.Width * dx * g.Width * dx
	}
	return g.Amplitude * math.Exp(-r2)
}

// DefaultBrainBump seeds misfolded protein near the brainstem of the
// reference brain geometry.
func DefaultBrainBump() GaussianBump {
	return GaussianBump{
		Center:    [3]float64{50, 80, 70},
		Width:     2,
		Amplitude: 1,
		Window:    1,
	}
}

// DefaultCubeBump seeds the center of the unit cube, sized for the
// structured test meshes.
func DefaultCubeBump() GaussianBump {
	return GaussianBump{
		Center:    [3]float64{0.5, 0.5, 0.5},
		Width:     30,
		Amplitude: 0.1,
		Window:    0.1,
	}
}

// Diffusivity builds the anisotropic diffusion tensor
// D = dExt*I + dAxn*(n ⊗ n) from the raw axonal direction components; the
// direction's magnitude scales the axonal contribution.
func Diffusivity(dExt, dAxn float64, axon [3]float64) [3][3]float64 {
	var D [3][3]float64
	for i := 0; i < 3; i++ {
		D[i][i] = dExt
		for j := 0; j < 3; j++ {
			D[i][j] += dAxn * axon[i] * axon[j]
		}
	}
	return D
}
