// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — единообразное формирование структурированных полей лога.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to capture order", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret маскирует чувствительное значение, оставляя только длину.
// Используется при логировании конфигурации.
func Secret(key, value string) slog.Attr {
	masked := "unset"
	if value != "" {
		masked = "set"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(masked),
	}
}
