package ometiff

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// byteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// entry is one IFD field with its value already encoded in the file byte
// order.
type entry struct {
	tag   uint16
	typ   uint16
	count uint64
	data  []byte
}

type ifdBuilder struct {
	order   byteOrder
	big     bool
	entries []entry
}

func newIFDBuilder(order byteOrder, big bool) *ifdBuilder {
	return &ifdBuilder{order: order, big: big}
}

func (b *ifdBuilder) shorts(tag uint16, values ...uint16) {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		b.order.PutUint16(data[2*i:], v)
	}
	b.entries = append(b.entries, entry{tag: tag, typ: dtShort, count: uint64(len(values)), data: data})
}

func (b *ifdBuilder) longs(tag uint16, values ...uint32) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		b.order.PutUint32(data[4*i:], v)
	}
	b.entries = append(b.entries, entry{tag: tag, typ: dtLong, count: uint64(len(values)), data: data})
}

// offsets writes LONG8 values for BigTIFF and LONG values otherwise. Callers
// have already checked that classic values fit in 32 bits.
func (b *ifdBuilder) offsets(tag uint16, values []uint64) {
	if !b.big {
		narrow := make([]uint32, len(values))
		for i, v := range values {
			narrow[i] = uint32(v)
		}
		b.longs(tag, narrow...)
		return
	}
	data := make([]byte, 8*len(values))
	for i, v := range values {
		b.order.PutUint64(data[8*i:], v)
	}
	b.entries = append(b.entries, entry{tag: tag, typ: dtLong8, count: uint64(len(values)), data: data})
}

func (b *ifdBuilder) ascii(tag uint16, value string) {
	data := append([]byte(value), 0)
	b.entries = append(b.entries, entry{tag: tag, typ: dtASCII, count: uint64(len(data)), data: data})
}

func (b *ifdBuilder) countSize() int {
	if b.big {
		return 8
	}
	return 2
}

func (b *ifdBuilder) entrySize() int {
	if b.big {
		return 20
	}
	return 12
}

func (b *ifdBuilder) valueSize() int {
	if b.big {
		return 8
	}
	return 4
}

// encode serializes the directory for placement at offset. Values that do
// not fit in an entry follow the directory, each starting on a word
// boundary. The next-IFD pointer is zero.
func (b *ifdBuilder) encode(offset uint64) []byte {
	sort.SliceStable(b.entries, func(i, j int) bool { return b.entries[i].tag < b.entries[j].tag })

	n := len(b.entries)
	dirSize := b.countSize() + n*b.entrySize() + b.valueSize()
	overflowBase := offset + uint64(dirSize)

	var dir, overflow bytes.Buffer
	if b.big {
		dir.Write(b.order.AppendUint64(nil, uint64(n)))
	} else {
		dir.Write(b.order.AppendUint16(nil, uint16(n)))
	}

	for _, e := range b.entries {
		dir.Write(b.order.AppendUint16(nil, e.tag))
		dir.Write(b.order.AppendUint16(nil, e.typ))
		if b.big {
			dir.Write(b.order.AppendUint64(nil, e.count))
		} else {
			dir.Write(b.order.AppendUint32(nil, uint32(e.count)))
		}

		value := make([]byte, b.valueSize())
		if len(e.data) <= len(value) {
			copy(value, e.data)
		} else {
			if overflow.Len()%2 == 1 {
				overflow.WriteByte(0)
			}
			at := overflowBase + uint64(overflow.Len())
			overflow.Write(e.data)
			if b.big {
				b.order.PutUint64(value, at)
			} else {
				b.order.PutUint32(value, uint32(at))
			}
		}
		dir.Write(value)
	}
	dir.Write(make([]byte, b.valueSize()))
	dir.Write(overflow.Bytes())
	return dir.Bytes()
}
