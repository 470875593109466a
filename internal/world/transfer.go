package world

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// maxSettingsSize предел блока настроек в полезной нагрузке
const maxSettingsSize = 64 * 1024

// WritePayload пишет мир в формате передачи и файла: zstd-поток из
// i32 размер настроек | настройки (YAML) | блоки чанков в построчном порядке |
// секция предметов (WriteItems). Карты высот и света не передаются.
func (w *World) WritePayload(dst io.Writer) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	if err := w.writeRaw(enc); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("ошибка завершения zstd-потока: %w", err)
	}
	return nil
}

func (w *World) writeRaw(dst io.Writer) error {
	settings, err := MarshalSettings(w.Settings())
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(dst, 64*1024)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(settings)))
	if _, err := bw.Write(size[:]); err != nil {
		return fmt.Errorf("ошибка записи настроек: %w", err)
	}
	if _, err := bw.Write(settings); err != nil {
		return fmt.Errorf("ошибка записи настроек: %w", err)
	}
	for _, c := range w.grid.All() {
		if err := c.WriteBlocks(bw); err != nil {
			return fmt.Errorf("ошибка записи чанка %v: %w", c.Coords, err)
		}
	}
	if err := w.WriteItems(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadPayload восстанавливает мир из потока WritePayload. Мир возвращается
// неготовым: перед использованием нужен FinalizeLoad.
func ReadPayload(src io.Reader, role Role, opts ...Option) (*World, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}
	defer dec.Close()
	return readRaw(dec, role, opts...)
}

func readRaw(src io.Reader, role Role, opts ...Option) (*World, error) {
	br := bufio.NewReaderSize(src, 64*1024)
	var size [4]byte
	if _, err := io.ReadFull(br, size[:]); err != nil {
		return nil, fmt.Errorf("ошибка чтения размера настроек: %w", err)
	}
	n := int32(binary.LittleEndian.Uint32(size[:]))
	if n < 0 || n > maxSettingsSize {
		return nil, fmt.Errorf("недопустимый размер настроек: %d", n)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	settings, err := UnmarshalSettings(raw)
	if err != nil {
		return nil, err
	}

	w, err := New(settings, role, opts...)
	if err != nil {
		return nil, err
	}
	for _, c := range w.grid.All() {
		if err := c.ReadBlocks(br); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.ReadItems(br); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
