// Package engine runs the build lifecycle shared by every tool adapter:
//
//	copy package.json -> prepare dependencies -> copy sources ->
//	generate tsconfig -> invoke tool -> validate outputs -> fix permissions ->
//	[bundle]
//
// An Adapter is plain data plus a script resolver. It only says what to run
// and what the run must produce; every step above is implemented once here.
package engine
