// Package analysis extracts dynamical quantities from recorded runs.
//
//   - [Resample]: linear interpolation of an adaptive trajectory onto a uniform grid
//   - [PowerSpectrum]: one-sided spectrum of a uniformly sampled signal
//   - [PeakFrequency]: dominant precession frequency of an average component
//   - [LarmorFrequency]: analytic precession frequency of a damped macrospin
//
// # Resonance
//
// A weakly damped macrospin precesses at f = γH / (2π(1+α²)), so the peak of
// the <mx> spectrum is a direct check on the integrator and the field setup:
//
//	f, err := analysis.PeakFrequency(times, mx, 4096)
package analysis
