package custody

import "math/big"

// SuccessPayloadLen is the wire width of the oracle success payload: a
// 32-byte big-endian unsigned integer.
const SuccessPayloadLen = 32

var one = big.NewInt(1)

// Approved decodes the success payload as a big-endian unsigned integer and
// reports whether it is exactly 1. This is a binary gate, not a graded score:
// 0, 2, and every other value all read as rejected.
func Approved(payload []byte) bool {
	return new(big.Int).SetBytes(payload).Cmp(one) == 0
}

// ApprovalPayload encodes the binary outcome the way the oracle does; tests
// and the fake oracle use it to build callbacks.
func ApprovalPayload(approved bool) []byte {
	payload := make([]byte, SuccessPayloadLen)
	if approved {
		payload[SuccessPayloadLen-1] = 1
	}
	return payload
}
