package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meteorsfall/voxelcraft/internal/world"
)

var _ world.Metrics = (*WorldMetrics)(nil)

// WorldMetrics: Prometheus-метрики хранилища мира, физики и сохранений.
type WorldMetrics struct {
	chunksLive    prometheus.Gauge
	arenaCapacity prometheus.Gauge
	arenaFree     prometheus.Gauge
	megachunks    prometheus.Gauge
	blockWrites   prometheus.Counter
	raycasts      *prometheus.CounterVec
	collisions    *prometheus.CounterVec
	saveDuration  prometheus.Histogram
	loadDuration  prometheus.Histogram
	saveFailures  prometheus.Counter
	corruptLoads  prometheus.Counter
}

// NewWorldMetrics создаёт метрики и регистрирует их в reg.
func NewWorldMetrics(namespace string, reg prometheus.Registerer) *WorldMetrics {
	m := &WorldMetrics{
		chunksLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_allocated",
			Help:      "Число чанков, занятых в арене.",
		}),
		arenaCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arena_capacity",
			Help:      "Ёмкость арены чанков (занятые и свободные слоты).",
		}),
		arenaFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arena_free_slots",
			Help:      "Длина списка свободных слотов арены.",
		}),
		megachunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "megachunks_loaded",
			Help:      "Число загруженных мегачанков.",
		}),
		blockWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_writes_total",
			Help:      "Общее число записей блоков.",
		}),
		raycasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raycasts_total",
			Help:      "Число лучей по результату.",
		}, []string{"result"}),
		collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collisions_total",
			Help:      "Число проверок столкновений по результату.",
		}, []string{"result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Длительность сохранения мира.",
			Buckets:   prometheus.DefBuckets,
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Длительность загрузки мира.",
			Buckets:   prometheus.DefBuckets,
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "Неудачные сохранения.",
		}),
		corruptLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      "Неудачные загрузки (включая повреждённые сохранения).",
		}),
	}

	reg.MustRegister(
		m.chunksLive, m.arenaCapacity, m.arenaFree, m.megachunks,
		m.blockWrites, m.raycasts, m.collisions,
		m.saveDuration, m.loadDuration, m.saveFailures, m.corruptLoads,
	)
	return m
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// ObserveArena обновляет состояние арены
func (m *WorldMetrics) ObserveArena(live, capacity, free int) {
	m.chunksLive.Set(float64(live))
	m.arenaCapacity.Set(float64(capacity))
	m.arenaFree.Set(float64(free))
}

// ObserveMegaChunks обновляет число мегачанков
func (m *WorldMetrics) ObserveMegaChunks(n int) {
	m.megachunks.Set(float64(n))
}

// BlockWritten считает запись блока
func (m *WorldMetrics) BlockWritten() {
	m.blockWrites.Inc()
}

// Raycast считает луч
func (m *WorldMetrics) Raycast(hit bool) {
	m.raycasts.WithLabelValues(resultLabel(hit, "hit", "miss")).Inc()
}

// Collision считает проверку столкновения
func (m *WorldMetrics) Collision(resolved bool) {
	m.collisions.WithLabelValues(resultLabel(resolved, "pushed", "clear")).Inc()
}

// Saved фиксирует сохранение
func (m *WorldMetrics) Saved(_ int, elapsed time.Duration, err error) {
	if err != nil {
		m.saveFailures.Inc()
		return
	}
	m.saveDuration.Observe(elapsed.Seconds())
}

// Loaded фиксирует загрузку
func (m *WorldMetrics) Loaded(megachunks int, elapsed time.Duration, err error) {
	if err != nil {
		m.corruptLoads.Inc()
		return
	}
	m.loadDuration.Observe(elapsed.Seconds())
	m.ObserveMegaChunks(megachunks)
}
