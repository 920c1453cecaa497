// Package ilgen models the state of a bytecode virtual machine while a
// method is being translated to IR.
//
// Bytecode virtual machines keep intermediate expression values on an
// operand stack. During compilation the translator simulates that stack:
// instead of runtime values, the simulated stack holds symbolic Value
// handles representing the expressions the bytecodes would compute. Each
// bytecode pops expression handles, combines them, and pushes the result
// back, so no stack traffic is generated for straight-line code.
//
// The simulation only becomes real when state must be visible to code
// that was not compiled with it:
//
//   - Commit writes every simulated slot into the virtual machine's real
//     operand stack representation (for example before a side exit back
//     to the interpreter).
//
//   - MergeInto reconciles the simulated state of one control-flow path
//     with the state another path already established at a join point,
//     so downstream code keeps reading the variables it was generated
//     against.
//
// Every simulated component (operand stack, simulated register, or a
// CompositeState bundling several of them) implements the VMState
// protocol, which lets a generic control-flow merge driver fork and join
// heterogeneous state without knowing the concrete types.
//
// Simulated state is exclusively owned by the IR-generation pass that
// created it. Nothing in this package is safe for concurrent use.
package ilgen
