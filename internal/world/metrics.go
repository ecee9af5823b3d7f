package world

import "time"

// Metrics получает события мира. Реализация на Prometheus лежит в пакете metrics.
type Metrics interface {
	ObserveArena(live, capacity, free int)
	ObserveMegaChunks(n int)
	BlockWritten()
	Raycast(hit bool)
	Collision(resolved bool)
	Saved(megachunks int, elapsed time.Duration, err error)
	Loaded(megachunks int, elapsed time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveArena(int, int, int) {}
func (nopMetrics) ObserveMegaChunks(int) {}
func (nopMetrics) BlockWritten() {}
func (nopMetrics) Raycast(bool) {}
func (nopMetrics) Collision(bool) {}
func (nopMetrics) Saved(int, time.Duration, error) {}
func (nopMetrics) Loaded(int, time.Duration, error) {}
