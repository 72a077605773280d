package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/google/uuid"
)

// Result is a charge authorization outcome. Reference is unique within the
// process; approved and declined references carry distinct prefixes.
type Result struct {
	Approved  bool
	Reference string
}

// Gateway authorizes a charge. The simulator below answers instantly, but
// callers must treat Charge as potentially slow: a real gateway adapter
// blocks on the network, so the call takes a context and may be bounded by
// a deadline. A context error is a declined, retriable outcome upstream.
type Gateway interface {
	Charge(ctx context.Context, amount float64) (Result, error)
}

// Simulator approves with a fixed probability, independent of amount.
type Simulator struct {
	approvalRate float64
	randFloat    func() float64
	seq          atomic.Uint64
}

// NewSimulator builds a simulator approving with probability approvalRate.
// randFloat may be nil, in which case math/rand is used; tests inject a
// deterministic source.
func NewSimulator(approvalRate float64, randFloat func() float64) *Simulator {
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return &Simulator{
		approvalRate: approvalRate,
		randFloat:    randFloat,
	}
}

func (s *Simulator) Charge(ctx context.Context, amount float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	approved := s.randFloat() < s.approvalRate
	n := s.seq.Add(1)

	prefix := "PAY"
	if !approved {
		prefix = "FAIL"
	}
	return Result{
		Approved:  approved,
		Reference: fmt.Sprintf("%s-%d-%s", prefix, n, uuid.New().String()),
	}, nil
}
