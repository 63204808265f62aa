// Package vm executes Method IR, woven or not.
//
// The machine is a straightforward stack interpreter over the block graph.
// Exceptions unwind through the method's region table: the innermost region
// whose protected range holds the faulting block and whose catch type
// matches receives the exception on an empty stack; finally blocks run on
// leave and during unwinding.
//
// Methods with suspension points are driven differently depending on their
// shape:
//
//   - Generators return a lazy value.Iterator. Nothing runs until the first
//     Next; every yield returns control to the consumer with the frame saved.
//     Closing an unfinished iterator unwinds the frame through its finally
//     blocks only.
//   - Continuations return a *value.Future. The body runs synchronously up to
//     the first await on an unsettled future; the frame then resumes on the
//     goroutine that settles it.
//
// The weaving opcodes are executed against a per-invocation execution state
// kept in a method local, so a Machine is safe for concurrent use.
package vm
