package actor

import (
	"fmt"
	"math/rand"

	"banksim/internal/bank"
)

// Policy decides which permitted bank an actor targets next.
type Policy string

const (
	PolicyFixed      Policy = "fixed"
	PolicyRoundRobin Policy = "round-robin"
	PolicyRandom     Policy = "random"
)

// ParsePolicy accepts the config spelling of a policy. Empty means fixed.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFixed:
		return PolicyFixed, nil
	case PolicyRoundRobin, PolicyRandom:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown targeting policy %q", s)
	}
}

// selector is owned by a single actor goroutine.
type selector struct {
	policy Policy
	banks  []*bank.Bank
	rnd    *rand.Rand
	next   int
}

func (s *selector) pick() *bank.Bank {
	switch s.policy {
	case PolicyRoundRobin:
		b := s.banks[s.next%len(s.banks)]
		s.next++
		return b
	case PolicyRandom:
		return s.banks[s.rnd.Intn(len(s.banks))]
	default:
		return s.banks[0]
	}
}
