package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction тег не зарегистрирован
	ErrUnknownAction = errors.New("неизвестный тип действия")
	// ErrProtocolViolation действие не ожидалось для роли или фазы рукопожатия
	ErrProtocolViolation = errors.New("нарушение протокола")
	// ErrVersionMismatch версии клиента и сервера не совпали
	ErrVersionMismatch = errors.New("несовпадение версий")
	// ErrPeerAlreadyBound действие уже привязано к другому соединению
	ErrPeerAlreadyBound = errors.New("действие уже привязано к пиру")
	// ErrPeerLeft пир сам попросил отключиться
	ErrPeerLeft = errors.New("пир отключился")
)

// DisconnectError ошибка соединения на стороне клиента. Владелец сессии
// решает по Restart: вернуться в меню или перезапустить процесс.
type DisconnectError struct {
	Reason  string
	Err     error
	Restart bool
}

func (e *DisconnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("отключение: %s: %v", e.Reason, e.Err)
	}
	return "отключение: " + e.Reason
}

func (e *DisconnectError) Unwrap() error { return e.Err }

// Disconnected оборачивает ошибку в DisconnectError
func Disconnected(reason string, err error) *DisconnectError {
	return &DisconnectError{Reason: reason, Err: err}
}

// violation оформляет нарушение протокола
func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}
