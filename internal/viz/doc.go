// Package viz draws particle systems in the terminal.
//
// The live view is a Bubble Tea program. Physics runs on a sim.Loop; the
// UI snapshots the system thirty times a second and draws particles as
// braille circles with links as lines.
//
//   - [Model]: live view of one system
//   - [Canvas]: braille bitmap with per-character colour
//   - [RunInteractive]: preset menu that launches a live view
//
// # Key Bindings
//
//	Space - Pause/Resume
//	.     - Single step while paused
//	B     - Drop boxes
//	C     - Grow a chain
//	G     - Toggle gravity
//	R     - Reset the scene
//	T     - Cycle themes
//	?     - Show help overlay
package viz
