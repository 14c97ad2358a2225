/*
Package vm implements a deterministic stack virtual machine for
smart contract scripts.

An Engine executes Scripts. Each invocation has a Context holding an
instruction pointer, an evaluation stack and its variable slots;
contexts form the invocation stack. Values are Items: Null, Boolean,
Integer, ByteString, Buffer, Pointer, Interop and the compound Array,
Struct and Map. A ReferenceCounter tracks every item reachable from
the engine, including items in unreachable cycles, which it collects
after each instruction so that the item count limit is exact.

Each instruction is charged its price from a PriceTable, multiplied
by the fee factor, before it executes. Running out of gas faults the
engine. Other faults are thrown as exceptions that the script may
catch with TRY; an uncaught fault leaves the engine in state Fault
with Fault returning an error whose root is one of the Err
sentinels, as reported by KindOf.

The opcodes are grouped into categories, each implemented in its own
file:
  - pushdata
  - control (and exception.go for TRY, ENDTRY, ENDFINALLY and THROW)
  - stack
  - slots
  - splice
  - bitwise
  - numeric
  - collections
  - types

System calls go to an InteropService. Package interop provides the
standard one.
*/
package vm
