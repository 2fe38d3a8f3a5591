package custody

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApproved(t *testing.T) {
	oneIn32 := ApprovalPayload(true)
	assert.True(t, Approved(oneIn32))
	assert.True(t, Approved([]byte{0x01}), "width does not matter, value does")

	assert.False(t, Approved(ApprovalPayload(false)))
	assert.False(t, Approved(nil))
	assert.False(t, Approved([]byte{0x02}))

	// 1 followed by a trailing zero byte is 256, not 1
	assert.False(t, Approved([]byte{0x01, 0x00}))
}
