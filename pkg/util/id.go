package util

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IndexGenerator hands out time-ordered task index numbers.
type IndexGenerator struct {
	once sync.Once
	node *snowflake.Node
	err  error
	id   int64
}

// NewIndexGenerator prepares a generator for the given snowflake node.
// The node is initialized lazily on first use.
func NewIndexGenerator(nodeID int64) *IndexGenerator {
	return &IndexGenerator{id: nodeID}
}

// Next returns the next index. If the node cannot be initialized (node id
// out of range) it falls back to node 1 so an index is always produced.
func (g *IndexGenerator) Next() int64 {
	g.once.Do(func() {
		g.node, g.err = snowflake.NewNode(g.id)
		if g.err != nil {
			g.node, g.err = snowflake.NewNode(1)
		}
	})
	return g.node.Generate().Int64()
}
