// Package llg implements the Landau-Lifshitz-Gilbert equation of motion for
// the magnetization.
//
// The right-hand side is assembled from three point-wise kernels:
//
//   - [Damping]: -αγ/(1+α²) · m × (m × H)
//   - [Precession]: -γ/(1+α²) · m × H
//   - [Relaxation]: c · (1 - m·m) · m
//
// Each kernel adds its contribution to caller-supplied destinations, so a
// full derivative is obtained by zeroing dm once and calling the kernels in
// turn. The kernels are pure and safe for concurrent use. They do not
// allocate or validate; NaN and Inf inputs propagate through the arithmetic.
//
// [Equation] applies the kernels over a whole vector field and implements
// [dynamo.System], so it can be driven by any integrator:
//
//	eq := llg.New(ef)
//	eq.Alpha = 0.02
//	result, err := sim.New(eq, integrators.NewRK45()).Run(ctx, m0, cfg)
package llg
