// Package codegen emits out-of-line machine-code snippets for the
// z/Architecture backend and tracks the relocation and trampoline
// bookkeeping they require.
//
// A snippet is a short instruction sequence placed after the main body
// of a compiled method: call glue that branches to a helper dispatcher,
// the constant data an unresolved call branches through, jump tables,
// and similar. Snippets are laid out in two passes:
//
//  1. a sizing pass asks every snippet for its exact byte length and
//     assigns base offsets, so branch displacements can be computed;
//  2. an emission pass writes the actual bytes and verifies that every
//     snippet produced exactly the length it promised.
//
// Every encode operation therefore has a paired length function, and
// the two must never drift apart: a mismatch corrupts the layout of all
// following snippets, so the emission pass treats it as fatal.
//
// Call targets beyond the directly addressable branch range are reached
// through a trampoline table; the trampoline substitution happens
// before the displacement is computed and before the final range check.
// Destinations unknown until load time are recorded as relocations for
// the loader to patch.
//
// All state here is exclusively owned by one compilation. The
// relocation list and trampoline table are append-only during the
// emission pass and need no locking.
package codegen
