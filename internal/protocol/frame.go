package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize u16 тип | i32 длина полезной нагрузки
const HeaderSize = 6

// DefaultMaxFrameSize предел полезной нагрузки по умолчанию; выгрузка мира
// целиком умещается в него со сжатием
const DefaultMaxFrameSize = 64 << 20

// ErrFrameTooLarge полезная нагрузка длиннее допустимой
var ErrFrameTooLarge = errors.New("слишком большой кадр")

// Type тег действия на проводе
type Type uint16

// WriteFrame пишет заголовок и полезную нагрузку одним вызовом Write
func WriteFrame(w io.Writer, t Type, payload []byte) error {
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(t))
	binary.LittleEndian.PutUint32(buf[2:6], uint32(int32(len(payload))))
	copy(buf[HeaderSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("ошибка записи кадра %d: %w", t, err)
	}
	return nil
}

// ReadFrame читает один кадр. Отрицательная длина или длина больше
// maxSize считаются нарушением протокола.
func ReadFrame(r io.Reader, maxSize int) (Type, []byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	t := Type(binary.LittleEndian.Uint16(hdr[0:2]))
	n := int32(binary.LittleEndian.Uint32(hdr[2:6]))
	if n < 0 || int(n) > maxSize {
		return t, nil, fmt.Errorf("%w: тип %d, длина %d", ErrFrameTooLarge, t, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return t, nil, fmt.Errorf("ошибка чтения полезной нагрузки %d: %w", t, err)
	}
	return t, payload, nil
}
