package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces the identifiers used across the pipeline. It is injected
// everywhere identifiers are minted so tests can assert exact outputs.
type Generator interface {
	// WorkflowID returns a fresh workflow correlation id.
	WorkflowID() string
	// OperationID returns a fresh id with a stage-specific prefix, e.g.
	// "bridge" or "conv".
	OperationID(prefix string) string
}

type uuidGenerator struct{}

// NewGenerator returns the production UUID-backed generator.
func NewGenerator() Generator { return uuidGenerator{} }

func (uuidGenerator) WorkflowID() string {
	return "wf_" + uuid.NewString()
}

func (uuidGenerator) OperationID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Sequence is a deterministic Generator for tests: ids are numbered in
// creation order.
type Sequence struct {
	n atomic.Uint64
}

func NewSequence() *Sequence { return &Sequence{} }

func (s *Sequence) WorkflowID() string {
	return fmt.Sprintf("wf_%04d", s.n.Add(1))
}

func (s *Sequence) OperationID(prefix string) string {
	return fmt.Sprintf("%s_%04d", prefix, s.n.Add(1))
}
