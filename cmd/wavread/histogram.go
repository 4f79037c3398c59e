/*
NAME
  histogram.go

DESCRIPTION
  histogram.go renders a pulse-width histogram for the -i diagnostic
  mode (--pulseread dumps the same pulses without it), a visual aid for judging the classification
  intervals BitReader derives in spec.md §4.4.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotPulseHistogram renders lens as a histogram to path, in PNG form.
func plotPulseHistogram(lens []float64, path string) error {
	if len(lens) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Pulse width distribution"
	p.X.Label.Text = "width (samples)"
	p.Y.Label.Text = "count"

	values := make(plotter.Values, len(lens))
	copy(values, lens)

	h, err := plotter.NewHist(values, 64)
	if err != nil {
		return fmt.Errorf("wavread: could not build histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("wavread: could not save %s: %w", path, err)
	}
	return nil
}
