package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
	"strconv"
)

// ByteGenerator produces a deterministic byte stream from HMAC-SHA256 rounds.
// The key is the decimal seed, the message is "<stream>:<round>", so every
// stream label yields an independent sequence for the same seed.
type ByteGenerator struct {
	mac          hash.Hash
	stream       string
	currentRound uint64
	currentPos   int
	buffer       [32]byte
	msg          []byte
}

// NewByteGenerator creates a byte generator positioned at cursor (in bytes).
func NewByteGenerator(seed int64, stream string, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		mac:          hmac.New(sha256.New, []byte(strconv.FormatInt(seed, 10))),
		stream:       stream,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
		msg:          make([]byte, 0, len(stream)+21),
	}

	bg.generateRound()

	return bg
}

// Next returns the next byte from the generator
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// Intn returns a uniform integer in [0, n). n must be in [1, 256].
// Bytes at or above the largest multiple of n are discarded so every face is
// equally likely.
func (bg *ByteGenerator) Intn(n int) int {
	if n <= 0 || n > 256 {
		panic("engine: Intn argument out of range")
	}
	limit := 256 - 256%n
	for {
		b := int(bg.Next())
		if b < limit {
			return b % n
		}
	}
}

// Fill writes offset+Intn(faces) into every element of dst.
func (bg *ByteGenerator) Fill(dst []uint8, faces int, offset uint8) {
	for i := range dst {
		dst[i] = uint8(bg.Intn(faces)) + offset
	}
}

func (bg *ByteGenerator) generateRound() {
	bg.msg = append(bg.msg[:0], bg.stream...)
	bg.msg = append(bg.msg, ':')
	bg.msg = strconv.AppendUint(bg.msg, bg.currentRound, 10)

	bg.mac.Reset()
	bg.mac.Write(bg.msg)
	copy(bg.buffer[:], bg.mac.Sum(nil))
}
