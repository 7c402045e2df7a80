package entity

import "errors"

var (
	// ErrDegenerateShape фигура с нулевой или отрицательной площадью
	ErrDegenerateShape = errors.New("degenerate shape: extents must be positive")

	// ErrParse некорректная метка патча, имя файла или запись
	ErrParse = errors.New("parse error")

	// ErrIO ошибка чтения или записи на границе экспорта/импорта
	ErrIO = errors.New("io error")

	// ErrNotConfigured зависимость не подключена
	ErrNotConfigured = errors.New("not configured")
)
