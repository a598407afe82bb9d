package core

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// NewUUID returns a random, non-zero 64-bit identifier. Zero is reserved as the invalid id.
func NewUUID() uint64 {
	for {
		u := uuid.New()
		// fold the 128 random bits so the version/variant nibbles don't bias the result
		id := binary.LittleEndian.Uint64(u[0:8]) ^ binary.LittleEndian.Uint64(u[8:16])
		if id != 0 {
			return id
		}
	}
}
