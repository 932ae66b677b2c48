package subscription

import (
	"math/rand/v2"
	"strings"
)

const (
	queueNameLength   = 8
	queueNameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// RandSource is the randomness GenerateQueueName draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// GenerateQueueName returns an 8 character name drawn uniformly from
// [A-Za-z0-9]. Names are meant for throwaway queues and are not secret.
func GenerateQueueName(r RandSource) string {
	if r == nil {
		r = globalRand{}
	}
	var sb strings.Builder
	sb.Grow(queueNameLength)
	for i := queueNameLength; i > 0; i-- {
		sb.WriteByte(queueNameAlphabet[r.IntN(len(queueNameAlphabet))])
	}
	return sb.String()
}

// NewQueueName is GenerateQueueName over the process-wide source.
func NewQueueName() string {
	return GenerateQueueName(globalRand{})
}
