// Package hash provides the deterministic 64-bit hash used by rendezvous
// placement (§4.1).
package hash

import "github.com/spaolacci/murmur3"

// Of hashes a (node, task) pair. It is deterministic across process
// restarts and across nodes: any two nodes computing Of(node, task) for the
// same inputs get the same value, which is the only contract placement
// depends on.
func Of(node, task string) uint64 {
	h := murmur3.New64()
	h.Write([]byte(node))
	h.Write([]byte{0}) // separator: avoids ("ab","c") colliding with ("a","bc")
	h.Write([]byte(task))
	return h.Sum64()
}
