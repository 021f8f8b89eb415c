// Package wrap transforms adapter observations for downstream consumers:
// stride downsampling, grayscale conversion and frame stacking.
package wrap

import (
	"fmt"
	"math"

	"github.com/muniverse-agent/asyncenv/sim"
)

// DownsampledSize returns the output size of Downsample: ceil(n/stride).
func DownsampledSize(n, stride int) int {
	return (n + stride - 1) / stride
}

// Downsample keeps every stride-th pixel along both axes, starting at (0, 0).
func Downsample(obs sim.Observation, stride int) (sim.Observation, error) {
	if stride < 1 {
		return sim.Observation{}, fmt.Errorf("downsample stride must be >= 1, got %d", stride)
	}
	if stride == 1 {
		return obs.Clone(), nil
	}
	out := sim.NewObservation(DownsampledSize(obs.Width, stride), DownsampledSize(obs.Height, stride))
	i := 0
	for y := 0; y < obs.Height; y += stride {
		for x := 0; x < obs.Width; x += stride {
			copy(out.Pix[i:i+3], obs.Pix[obs.Offset(x, y):])
			i += 3
		}
	}
	return out, nil
}

// Grayscale replaces each pixel with the rounded mean of its channels,
// written to all three channels so the result stays a valid Observation.
func Grayscale(obs sim.Observation) sim.Observation {
	out := sim.NewObservation(obs.Width, obs.Height)
	for i := 0; i+2 < len(obs.Pix); i += 3 {
		sum := float64(obs.Pix[i]) + float64(obs.Pix[i+1]) + float64(obs.Pix[i+2])
		v := uint8(math.Round(sum / 3))
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = v, v, v
	}
	return out
}

// Pipeline applies the configured transforms in order: downsample, then grayscale.
type Pipeline struct {
	Stride    int // 0 or 1 disables downsampling
	Grayscale bool
}

// Apply runs the pipeline on one observation.
func (p Pipeline) Apply(obs sim.Observation) (sim.Observation, error) {
	var err error
	if p.Stride > 1 {
		obs, err = Downsample(obs, p.Stride)
		if err != nil {
			return sim.Observation{}, err
		}
	}
	if p.Grayscale {
		obs = Grayscale(obs)
	}
	return obs, nil
}

// Space returns the observation space after the pipeline.
func (p Pipeline) Space(in sim.ObservationSpace) sim.ObservationSpace {
	if p.Stride > 1 {
		in.Width = DownsampledSize(in.Width, p.Stride)
		in.Height = DownsampledSize(in.Height, p.Stride)
	}
	return in
}
