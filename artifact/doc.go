// Package artifact reads and writes the binary container that carries a
// module of Method IRs between the front end, the weaver and the runtime.
//
// Layout:
//
//	magic    "\x00wvr"
//	version  u32 little endian
//	section* id u8 | size LEB128 u32 | payload
//
// Section 1 holds the methods. Section 0 is a custom section, a name
// followed by opaque bytes; custom sections are preserved unchanged across a
// decode/encode round trip. Integers inside payloads are unsigned LEB128 and
// strings are length-prefixed UTF-8. Constant operands are CBOR.
package artifact
