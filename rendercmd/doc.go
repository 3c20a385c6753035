// Package rendercmd encodes a frame's drawing instructions into a flat byte
// buffer and decodes them on the rendering side.
//
// A stream is one buffer owned by the caller. It starts with a 32-byte header
//
//	offset  0  uint32  command count
//	offset  8  uint64  offset of the first command
//	offset 16  uint64  offset of the last command
//	offset 24  uint64  end of the last command
//
// followed by the commands in push order. Each command begins with a 16-byte
// sub-header {kind uint32, _ uint32, next uint64} where next is the offset of
// the following command (0 for the last one), and is placed at the next
// offset aligned for its kind. All fields are little endian and all offsets
// are relative to the start of the buffer.
//
// The simulation side fills a Stream once per frame with Push; the renderer
// walks it with a Reader or hands it to Replay.
package rendercmd
