package codecache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codecache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalUnit serializes a CompiledUnit to CBOR bytes.
func MarshalUnit(u *CompiledUnit) ([]byte, error) {
	return cborEncMode.Marshal(u)
}

// UnmarshalUnit deserializes a CompiledUnit from CBOR bytes.
func UnmarshalUnit(data []byte) (*CompiledUnit, error) {
	var u CompiledUnit
	if err := cbor.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("codecache: unmarshal unit: %w", err)
	}
	return &u, nil
}
