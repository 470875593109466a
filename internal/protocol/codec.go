package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrPayloadLength объявленная длина полезной нагрузки не совпала с прочитанной
var ErrPayloadLength = errors.New("длина полезной нагрузки не совпадает с содержимым")

// Writer пишет поля полезной нагрузки в little-endian
type Writer struct {
	buf bytes.Buffer
}

// Bytes записанная полезная нагрузка
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len длина записанного
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) U8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) U16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (w *Writer) I32(v int32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func (w *Writer) U64(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

func (w *Writer) F32(v float32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)))
}

// Raw пишет байты как есть
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

// Fixed пишет ASCII-строку в поле фиксированной длины, добивая нулями.
// Длинная строка обрезается.
func (w *Writer) Fixed(s string, n int) {
	field := make([]byte, n)
	copy(field, s)
	w.buf.Write(field)
}

// String пишет i32 длину и UTF-8 байты
func (w *Writer) String(s string) {
	w.I32(int32(len(s)))
	w.buf.WriteString(s)
}

// Position 3 x i32
func (w *Writer) Position(p vec.Position) {
	w.I32(int32(p.X))
	w.I32(int32(p.Y))
	w.I32(int32(p.Z))
}

// Coords 3 x f32, направление и наклон
func (w *Writer) Coords(c vec.Coords) {
	w.F32(c.Xf)
	w.F32(c.Yf)
	w.F32(c.Zf)
	w.F32(c.Direction)
	w.F32(c.Pitch)
}

// Reader читает поля полезной нагрузки. Первая ошибка запоминается,
// последующие чтения возвращают нули.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader создаёт чтение поверх полезной нагрузки
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err первая ошибка чтения
func (r *Reader) Err() error { return r.err }

// Remaining непрочитанные байты
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Done проверяет, что нагрузка прочитана без ошибок и целиком
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: лишние %d байт", ErrPayloadLength, len(r.data)-r.off)
	}
	return nil
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: нужно %d байт, осталось %d: %w", ErrPayloadLength, n, r.Remaining(), io.ErrUnexpectedEOF)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// BlockType u16 тип блока; значения вне байта считаются нарушением
func (r *Reader) BlockType() block.Type {
	v := r.U16()
	if v > 0xFF {
		r.Fail(violation("тип блока %#04x вне диапазона", v))
		return block.Air
	}
	return block.Type(v)
}

func (r *Reader) I32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) F32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Raw читает n байт (копию)
func (r *Reader) Raw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// Rest читает всё оставшееся
func (r *Reader) Rest() []byte {
	return r.Raw(r.Remaining())
}

// Fixed читает поле фиксированной длины и отрезает завершающие нули
func (r *Reader) Fixed(n int) string {
	b := r.take(n)
	return string(bytes.TrimRight(b, "\x00"))
}

// String читает i32 длину и UTF-8 байты
func (r *Reader) String() string {
	n := r.I32()
	if r.err == nil && (n < 0 || int(n) > r.Remaining()) {
		r.err = fmt.Errorf("%w: строка длиной %d", ErrPayloadLength, n)
		return ""
	}
	return string(r.take(int(n)))
}

func (r *Reader) Position() vec.Position {
	x, y, z := r.I32(), r.I32(), r.I32()
	return vec.Position{X: int(x), Y: int(y), Z: int(z)}
}

func (r *Reader) Coords() vec.Coords {
	return vec.Coords{Xf: r.F32(), Yf: r.F32(), Zf: r.F32(), Direction: r.F32(), Pitch: r.F32()}
}

// Fail запоминает ошибку разбора, если её ещё нет
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
