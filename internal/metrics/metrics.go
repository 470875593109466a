package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blockverse"

// Коллекторы процесса. Регистрируются один раз в глобальном регистре.
var (
	// LightBoxDuration длительность инкрементального пересчёта света
	LightBoxDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "lighting",
		Name:      "light_box_duration_seconds",
		Help:      "Длительность пересчёта области света после правки.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	// BlockEdits применённые правки блоков
	BlockEdits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "world",
		Name:      "block_edits_total",
		Help:      "Число применённых правок блоков.",
	}, []string{"kind"})

	// ChunksBuilt собранные чанки
	ChunksBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "chunks_built_total",
		Help:      "Число собранных чанков.",
	})

	// StaleBuildEntries записи очереди, отброшенные при перепроверке состояния
	StaleBuildEntries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "stale_entries_total",
		Help:      "Записи очереди сборки, чьё состояние уже не совпадает с причиной постановки.",
	})

	// BuildQueueDepth длина очередей сборки
	BuildQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "queue_depth",
		Help:      "Длина очередей сборки.",
	}, []string{"queue"})

	// ActionsIn принятые действия по типу
	ActionsIn = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "network",
		Name:      "actions_in_total",
		Help:      "Число принятых действий.",
	}, []string{"action"})

	// ActionsOut отправленные действия по типу
	ActionsOut = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "network",
		Name:      "actions_out_total",
		Help:      "Число отправленных действий.",
	}, []string{"action"})

	// Peers подключённые пиры
	Peers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "network",
		Name:      "peers",
		Help:      "Число подключённых пиров.",
	})

	// Disconnects отключения по причине
	Disconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "network",
		Name:      "disconnects_total",
		Help:      "Число отключений пиров.",
	}, []string{"reason"})

	// WorldSaves сохранения мира
	WorldSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "saves_total",
		Help:      "Число сохранений мира.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		LightBoxDuration,
		BlockEdits,
		ChunksBuilt,
		StaleBuildEntries,
		BuildQueueDepth,
		ActionsIn,
		ActionsOut,
		Peers,
		Disconnects,
		WorldSaves,
	)
}
