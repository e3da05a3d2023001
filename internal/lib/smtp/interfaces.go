package smtp

import "io"

// Client минимальный интерфейс SMTP-клиента, достаточный для отправки
// письма. Выделен, чтобы подменять соединение в тестах.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}
