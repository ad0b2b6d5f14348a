// Package viz provides a terminal view of a running magnetization simulation.
//
// The live view is a Bubble Tea program that steps the system on a timer and
// plots the average magnetization components as they evolve.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	Tab   - Cycle tunable parameters
//	Up/K  - Increase selected parameter (+5%)
//	Down/J- Decrease selected parameter (-5%)
//	Q     - Quit
package viz
