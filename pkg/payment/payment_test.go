package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charvilabs/charvi/pkg/crypt"
)

func TestVerifySignature(t *testing.T) {
	c := &Client{KeyID: "key", KeySecret: "secret"}

	good := crypt.HMACSHA256("order_abc|pay_xyz", "secret")
	assert.True(t, c.VerifySignature("order_abc", "pay_xyz", good))

	assert.False(t, c.VerifySignature("order_abc", "pay_xyz", "deadbeef"))
	assert.False(t, c.VerifySignature("order_abc", "pay_other", good))

	forged := crypt.HMACSHA256("order_abc|pay_xyz", "wrong-secret")
	assert.False(t, c.VerifySignature("order_abc", "pay_xyz", forged))
}

func TestConfigured(t *testing.T) {
	assert.False(t, (&Client{}).Configured())
	assert.False(t, (&Client{KeyID: "key"}).Configured())
	assert.True(t, (&Client{KeyID: "key", KeySecret: "secret"}).Configured())
}
