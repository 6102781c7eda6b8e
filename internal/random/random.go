package random

import (
	"crypto/rand"
	"github.com/myrjola/whodunit/internal/errors"
	"log/slog"
	"math/big"
)

var ErrInvalidBound = errors.NewSentinel("bound must be positive")

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters returns n random ASCII letters, e.g., for naming in-memory databases.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	for i := range letters {
		letterIndex, err := Intn(len(allowedLetters))
		if err != nil {
			return "", err
		}
		letters[i] = allowedLetters[letterIndex]
	}
	return string(letters), nil
}

// Intn returns a uniformly distributed random integer in [0, n).
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, errors.Wrap(ErrInvalidBound, "draw random integer", slog.Int("n", n))
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, errors.Wrap(err, "read random number")
	}
	return int(i.Int64()), nil
}
