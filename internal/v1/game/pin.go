package game

import (
	"crypto/rand"
	"encoding/binary"
	"regexp"

	"github.com/quizdome/quizdome/backend/go/internal/v1/apperr"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

const pinLength = 6

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

// weakPins are trivially guessable sequences that are never issued.
var weakPins = map[types.PinType]struct{}{
	"000000": {}, "111111": {}, "222222": {}, "333333": {},
	"444444": {}, "555555": {}, "666666": {}, "777777": {},
	"888888": {}, "999999": {}, "123456": {}, "654321": {},
}

// GeneratePin draws a uniform random 6-digit PIN, re-drawing weak sequences.
func GeneratePin() types.PinType {
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand failing means the process has no usable entropy
			// source; nothing sensible can continue.
			panic(err)
		}
		n := binary.BigEndian.Uint64(buf[:]) % 1_000_000

		digits := make([]byte, pinLength)
		for i := pinLength - 1; i >= 0; i-- {
			digits[i] = byte('0' + n%10)
			n /= 10
		}
		pin := types.PinType(digits)

		if _, weak := weakPins[pin]; weak {
			continue
		}
		return pin
	}
}

// ValidPin reports whether s is a well-formed 6-digit PIN.
func ValidPin(s string) bool {
	return pinPattern.MatchString(s)
}

// AllocatePin draws PINs until one is free according to exists, giving up
// after maxAttempts draws.
func AllocatePin(maxAttempts int, exists func(types.PinType) bool) (types.PinType, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pin := GeneratePin()
		if !exists(pin) {
			return pin, nil
		}
	}
	return "", apperr.CapacityExceeded("could not allocate a free PIN after %d attempts", maxAttempts)
}
