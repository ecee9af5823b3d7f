package world

import "errors"

var (
	// ErrOutOfRange: координаты вне фиксированной локальной сетки (чанк или мегачанк 16³).
	ErrOutOfRange = errors.New("coordinates out of range")

	// ErrCorruptData: буфер сериализации не совпадает по длине или содержит мусор.
	ErrCorruptData = errors.New("corrupt data")

	// ErrChunkExists: повторное создание чанка в занятом слоте мегачанка.
	ErrChunkExists = errors.New("chunk already exists")
)
