package world

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// ProtocolVersion версия мира и протокола; клиент с другой версией не допускается
const ProtocolVersion = "blockverse-1.0"

// Settings параметры мира, передаваемые вместе с блоками
type Settings struct {
	Name        string  `yaml:"name"`
	Seed        int64   `yaml:"seed"`
	SizeChunksX int     `yaml:"size_chunks_x"`
	SizeChunksZ int     `yaml:"size_chunks_z"`
	GameTime    int32   `yaml:"game_time"`
	SunDegrees  float32 `yaml:"sun_degrees"`
	Creative    bool    `yaml:"creative"`
	Version     string  `yaml:"version"`
}

// MaxSizeChunks предел размера мира по каждой оси
const MaxSizeChunks = 64

// DefaultSettings настройки небольшого мира по умолчанию
func DefaultSettings() Settings {
	return Settings{
		Name:        "world",
		Seed:        1,
		SizeChunksX: 8,
		SizeChunksZ: 8,
		SunDegrees:  90,
		Version:     ProtocolVersion,
	}
}

// Validate проверяет размер мира
func (s Settings) Validate() error {
	if s.SizeChunksX <= 0 || s.SizeChunksZ <= 0 || s.SizeChunksX > MaxSizeChunks || s.SizeChunksZ > MaxSizeChunks {
		return fmt.Errorf("недопустимый размер мира %dx%d чанков", s.SizeChunksX, s.SizeChunksZ)
	}
	return nil
}

// MarshalSettings сериализует настройки в YAML
func MarshalSettings(s Settings) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации настроек: %w", err)
	}
	return data, nil
}

// UnmarshalSettings разбирает настройки по одному полю: испорченное поле
// молча получает значение по умолчанию. Ошибка только если документ
// вообще не является YAML-словарём.
func UnmarshalSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	var fields map[string]yaml.Node
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return s, fmt.Errorf("ошибка разбора настроек: %w", err)
	}

	if v, ok := field[string](fields, "name"); ok {
		s.Name = v
	}
	if v, ok := field[string](fields, "version"); ok {
		s.Version = v
	}
	if v, ok := field[int64](fields, "seed"); ok {
		s.Seed = v
	}
	if v, ok := field[int](fields, "size_chunks_x"); ok && v > 0 && v <= MaxSizeChunks {
		s.SizeChunksX = v
	}
	if v, ok := field[int](fields, "size_chunks_z"); ok && v > 0 && v <= MaxSizeChunks {
		s.SizeChunksZ = v
	}
	if v, ok := field[int32](fields, "game_time"); ok && v >= 0 {
		s.GameTime = v
	}
	if v, ok := field[float32](fields, "sun_degrees"); ok && !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) {
		s.SunDegrees = float32(math.Mod(float64(v), 360))
	}
	if v, ok := field[bool](fields, "creative"); ok {
		s.Creative = v
	}
	return s, nil
}

// field декодирует скалярное поле; ok=false, если поля нет или оно испорчено
func field[T any](fields map[string]yaml.Node, key string) (T, bool) {
	var v T
	n, ok := fields[key]
	if !ok || n.Kind != yaml.ScalarNode {
		return v, false
	}
	if err := n.Decode(&v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}
