// Package dynamo provides core simulation primitives for magnetization dynamics.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: flat vector holding the system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//   - [Metric]: observable accumulated over a run
//
// # Vector Fields
//
// A vector field over N points is stored component-major:
//
//	[x0 .. xN-1, y0 .. yN-1, z0 .. zN-1]
//
// Use [Components] to obtain per-component views and [Normalize] to rescale
// every point to a fixed length.
//
// # Thread Safety
//
// States are plain slices and carry no locking. Integrators keep scratch
// buffers and must not be shared between goroutines.
package dynamo
