package wasm

import "github.com/friendlymatthew/whale/leb128"

// moduleBuilder assembles a minimal binary module by hand, the way the
// teacher's own fixtures construct test inputs byte by byte rather than
// through a third-party assembler.
type moduleBuilder struct {
	buf []byte
}

func newModuleBuilder() *moduleBuilder {
	b := &moduleBuilder{}
	b.buf = append(b.buf, 0x00, 'a', 's', 'm')
	b.buf = append(b.buf, 0x01, 0x00, 0x00, 0x00)
	return b
}

func (b *moduleBuilder) section(id byte, body []byte) *moduleBuilder {
	b.buf = append(b.buf, id)
	b.buf = leb128.WriteU32(b.buf, uint32(len(body)))
	b.buf = append(b.buf, body...)
	return b
}

func (b *moduleBuilder) bytes() []byte {
	return b.buf
}

func u32vec(n int) []byte {
	return leb128.WriteU32(nil, uint32(n))
}

// typeSection builds a type section with a single func type.
func typeSection(params, results []ValueType) []byte {
	body := u32vec(1)
	body = append(body, 0x60)
	body = append(body, u32vec(len(params))...)
	for _, p := range params {
		body = append(body, byte(p))
	}
	body = append(body, u32vec(len(results))...)
	for _, r := range results {
		body = append(body, byte(r))
	}
	return body
}

// funcSection declares one function per given type index.
func funcSection(typeIdxs ...uint32) []byte {
	body := u32vec(len(typeIdxs))
	for _, idx := range typeIdxs {
		body = leb128.WriteU32(body, idx)
	}
	return body
}

// codeSection wraps each given function body's instruction bytes into a
// code entry with no locals.
func codeSection(bodies ...[]byte) []byte {
	body := u32vec(len(bodies))
	for _, fb := range bodies {
		entry := u32vec(0) // zero local decls
		entry = append(entry, fb...)
		body = leb128.WriteU32(body, uint32(len(entry)))
		body = append(body, entry...)
	}
	return body
}
