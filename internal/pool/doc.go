// Package pool keeps idle cipher engine handles for reuse.
//
// A Pool holds handles of one kind. Checkout pops an idle handle or, on a
// miss, creates a fresh uninstantiated one through the engine factory; it
// never waits. Return puts a handle back whatever its state, and callers
// restore or instantiate state before use. A handle is either idle in
// exactly one pool or checked out to exactly one caller. EnginePool groups
// the encoder and decoder pools that a process shares.
package pool
