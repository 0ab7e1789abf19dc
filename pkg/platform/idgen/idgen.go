// Package idgen issues time-ordered 63-bit identifiers for sessions and clients.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator yields unique int64 ids.
type Generator interface {
	NextID() int64
}

// Snowflake wraps a node-scoped snowflake generator. Ids are unique per
// node id; operators running more than one instance must assign distinct
// node ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake accepts node ids in [0, 1023].
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) NextID() int64 {
	return s.node.Generate().Int64()
}

// Sequence is a deterministic generator for tests.
type Sequence struct {
	next int64
}

func NewSequence(start int64) *Sequence {
	return &Sequence{next: start}
}

func (s *Sequence) NextID() int64 {
	v := s.next
	s.next++
	return v
}
