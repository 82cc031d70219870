// Package vertex describes interleaved vertex layouts and packs attribute
// values into, and out of, raw vertex bytes.
package vertex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/x448/float16"
)

// Attrib is a vertex attribute slot. The order is the serialization order.
type Attrib uint8

const (
	Position Attrib = iota
	Normal
	Tangent
	Bitangent
	Color0
	Color1
	TexCoord0
	AttribCount
)

var attribNames = [AttribCount]string{
	"Position", "Normal", "Tangent", "Bitangent", "Color0", "Color1", "TexCoord0",
}

// String returns the attribute name.
func (a Attrib) String() string {
	if a < AttribCount {
		return attribNames[a]
	}
	return fmt.Sprintf("Attrib(%d)", a)
}

// Wire identifiers, stable across versions of the format.
var attribIDs = [AttribCount]uint16{
	Position:  0x0001,
	Normal:    0x0002,
	Tangent:   0x0003,
	Bitangent: 0x0004,
	Color0:    0x0005,
	Color1:    0x0006,
	TexCoord0: 0x0010,
}

// Type is the storage type of one attribute component.
type Type uint8

const (
	Uint8 Type = iota
	Int16
	Half
	Float
	TypeCount
)

var typeNames = [TypeCount]string{"Uint8", "Int16", "Half", "Float"}

// String returns the type name.
func (t Type) String() string {
	if t < TypeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

var typeIDs = [TypeCount]uint16{
	Uint8: 0x0001,
	Int16: 0x0002,
	Half:  0x0003,
	Float: 0x0004,
}

// Byte size per type and component count (1..4). Three 8/16-bit components
// are padded to four.
var typeSizes = [TypeCount][4]uint16{
	Uint8: {1, 2, 4, 4},
	Int16: {2, 4, 8, 8},
	Half:  {2, 4, 8, 8},
	Float: {4, 8, 12, 16},
}

// Layout errors.
var (
	ErrUnknownAttrib = errors.New("unknown vertex attribute id")
	ErrUnknownType   = errors.New("unknown vertex attribute type id")
)

type attribDesc struct {
	used       bool
	num        uint8
	typ        Type
	normalized bool
	asInt      bool
	offset     uint16
}

// Layout is an interleaved vertex format. Attributes are laid out in the
// order they are added.
type Layout struct {
	attrs  [AttribCount]attribDesc
	stride uint16
}

// Add appends an attribute with num components (1..4) of type typ.
// normalized maps integer storage to [0,1] (or [-1,1] with asInt).
func (l *Layout) Add(a Attrib, num uint8, typ Type, normalized, asInt bool) *Layout {
	if num < 1 {
		num = 1
	} else if num > 4 {
		num = 4
	}
	l.attrs[a] = attribDesc{
		used:       true,
		num:        num,
		typ:        typ,
		normalized: normalized,
		asInt:      asInt,
		offset:     l.stride,
	}
	l.stride += typeSizes[typ][num-1]
	return l
}

// Stride returns the size of one vertex in bytes.
func (l *Layout) Stride() int {
	return int(l.stride)
}

// Has reports whether the attribute is part of the layout.
func (l *Layout) Has(a Attrib) bool {
	return a < AttribCount && l.attrs[a].used
}

// Offset returns the byte offset of the attribute inside a vertex.
func (l *Layout) Offset(a Attrib) int {
	return int(l.attrs[a].offset)
}

// Decode returns the attribute's component count, type and flags.
func (l *Layout) Decode(a Attrib) (num uint8, typ Type, normalized, asInt bool) {
	d := l.attrs[a]
	return d.num, d.typ, d.normalized, d.asInt
}

// Count returns the number of attributes in the layout.
func (l *Layout) Count() int {
	n := 0
	for _, d := range l.attrs {
		if d.used {
			n++
		}
	}
	return n
}

// Pack stores input into the attribute of the vertex at index in data.
// inputNormalized tells that input is in [-1,1] (asInt) or [0,1] range and
// should be scaled into the integer storage range.
func (l *Layout) Pack(data []byte, index int, a Attrib, input [4]float32, inputNormalized bool) {
	d := l.attrs[a]
	if !d.used {
		return
	}
	p := data[index*int(l.stride)+int(d.offset):]

	for i := 0; i < int(d.num); i++ {
		v := input[i]
		switch d.typ {
		case Uint8:
			if inputNormalized {
				if d.asInt {
					v = v*127 + 128
				} else {
					v *= 255
				}
			}
			p[i] = uint8(clamp(v, 0, math.MaxUint8))
		case Int16:
			if inputNormalized {
				if d.asInt {
					v *= 32767
				} else {
					v = v*65535 - 32768
				}
			}
			binary.LittleEndian.PutUint16(p[i*2:], uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
		case Half:
			binary.LittleEndian.PutUint16(p[i*2:], float16.Fromfloat32(v).Bits())
		case Float:
			binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
		}
	}
}

// Unpack reads the attribute of the vertex at index. Components beyond the
// attribute's count are zero.
func (l *Layout) Unpack(data []byte, index int, a Attrib) [4]float32 {
	var out [4]float32
	d := l.attrs[a]
	if !d.used {
		return out
	}
	p := data[index*int(l.stride)+int(d.offset):]

	for i := 0; i < int(d.num); i++ {
		switch d.typ {
		case Uint8:
			v := float32(p[i])
			if d.normalized {
				if d.asInt {
					v = (v - 128) / 127
				} else {
					v /= 255
				}
			}
			out[i] = v
		case Int16:
			v := float32(int16(binary.LittleEndian.Uint16(p[i*2:])))
			if d.normalized {
				if d.asInt {
					v /= 32767
				} else {
					v = (v + 32768) / 65535
				}
			}
			out[i] = v
		case Half:
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(p[i*2:])).Float32()
		case Float:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		}
	}
	return out
}

// WriteTo serializes the layout: attribute count (u8), stride (u16), then per
// attribute offset (u16), id (u16), component count (u8), type id (u16),
// normalized (u8) and asInt (u8).
func (l *Layout) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, 3+l.Count()*9)
	buf = append(buf, uint8(l.Count()))
	buf = binary.LittleEndian.AppendUint16(buf, l.stride)

	for a := Attrib(0); a < AttribCount; a++ {
		d := l.attrs[a]
		if !d.used {
			continue
		}
		buf = binary.LittleEndian.AppendUint16(buf, d.offset)
		buf = binary.LittleEndian.AppendUint16(buf, attribIDs[a])
		buf = append(buf, d.num)
		buf = binary.LittleEndian.AppendUint16(buf, typeIDs[d.typ])
		buf = append(buf, boolByte(d.normalized), boolByte(d.asInt))
	}

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadLayout parses a layout written by WriteTo.
func ReadLayout(r io.Reader) (Layout, error) {
	var l Layout
	var header struct {
		Count  uint8
		Stride uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return l, fmt.Errorf("reading layout header: %w", err)
	}

	for i := 0; i < int(header.Count); i++ {
		var raw struct {
			Offset     uint16
			ID         uint16
			Num        uint8
			TypeID     uint16
			Normalized uint8
			AsInt      uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return l, fmt.Errorf("reading attribute %d: %w", i, err)
		}

		a, ok := attribFromID(raw.ID)
		if !ok {
			return l, fmt.Errorf("%w: %#04x", ErrUnknownAttrib, raw.ID)
		}
		typ, ok := typeFromID(raw.TypeID)
		if !ok {
			return l, fmt.Errorf("%w: %#04x", ErrUnknownType, raw.TypeID)
		}
		l.attrs[a] = attribDesc{
			used:       true,
			num:        raw.Num,
			typ:        typ,
			normalized: raw.Normalized != 0,
			asInt:      raw.AsInt != 0,
			offset:     raw.Offset,
		}
	}
	l.stride = header.Stride
	return l, nil
}

func attribFromID(id uint16) (Attrib, bool) {
	for a, v := range attribIDs {
		if v == id {
			return Attrib(a), true
		}
	}
	return 0, false
}

func typeFromID(id uint16) (Type, bool) {
	for t, v := range typeIDs {
		if v == id {
			return Type(t), true
		}
	}
	return 0, false
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
