// Package pkce реализует PKCE (RFC 7636) для OAuth-потока X (Twitter)
// и кодирование opaque-параметра state.
//
// Сервер не хранит состояние между редиректом к провайдеру и обратным
// вызовом: code_verifier упаковывается в state вместе с меткой потока
// (web или mobile) и возвращается провайдером без изменений. Verifier
// никогда не персистится.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ChallengeMethod — метод преобразования verifier в challenge.
const ChallengeMethod = "S256"

// StateDelimiter разделяет метку потока и verifier внутри state.
// Символ не входит в алфавит base64url, поэтому state разбирается однозначно.
const StateDelimiter = "|"

// ErrInvalidState возвращается, когда state не содержит разделителя
// или часть с verifier пуста.
var ErrInvalidState = errors.New("pkce: invalid state")

// NewVerifier генерирует случайный code_verifier: 32 байта энтропии,
// base64url без набивки (43 символа).
func NewVerifier() (string, error) {
	const op = "pkce.NewVerifier"
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Challenge возвращает code_challenge метода S256 для заданного verifier:
// base64url(SHA-256(verifier)) без набивки.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// EncodeState упаковывает метку потока и verifier в один opaque-параметр
// вида "flow|verifier".
func EncodeState(flow, verifier string) string {
	return flow + StateDelimiter + verifier
}

// DecodeState разбирает state по первому разделителю и возвращает метку
// потока и verifier. Ошибка — если разделителя нет или verifier пуст.
func DecodeState(state string) (flow, verifier string, err error) {
	i := strings.Index(state, StateDelimiter)
	if i == -1 {
		return "", "", ErrInvalidState
	}
	flow = state[:i]
	verifier = state[i+1:]
	if verifier == "" {
		return "", "", ErrInvalidState
	}
	return flow, verifier, nil
}
