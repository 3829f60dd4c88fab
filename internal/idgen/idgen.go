// Package idgen supplies opaque identifiers for storage nodes and
// versions. It wraps google/uuid rather than rolling a random-id
// generator by hand.
package idgen

import "github.com/google/uuid"

// New is a package-level indirection so tests can substitute a
// deterministic sequence without a mock framework.
var New = uuid.NewString
