package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0x8ba1f109551bd432803012645ac136ddd64dba72", NormalizeAddress("0x8Ba1f109551bD432803012645Ac136ddd64DBA72"))
	assert.Equal(t, "", NormalizeAddress(""))
	assert.Equal(t, ZeroAddress, NormalizeAddress("0x0"))
}

func TestIsZeroAddress(t *testing.T) {
	assert.True(t, IsZeroAddress(""))
	assert.True(t, IsZeroAddress(ZeroAddress))
	assert.True(t, IsZeroAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, IsZeroAddress("0x8Ba1f109551bD432803012645Ac136ddd64DBA72"))
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, "1000000000000000000", ParseAmount("1000000000000000000").String())
	assert.Equal(t, "0", ParseAmount("").String())
	assert.Equal(t, "0", ParseAmount("not-a-number").String())
}

func TestAmountGreaterThan(t *testing.T) {
	assert.True(t, AmountGreaterThan("2000000000000000000", "1000000000000000000"))
	assert.False(t, AmountGreaterThan("1000000000000000000", "1000000000000000000"))
	assert.False(t, AmountGreaterThan("", "0"))
}

func TestAddAmounts(t *testing.T) {
	assert.Equal(t, "300", AddAmounts("100", "200"))
	assert.Equal(t, "100", AddAmounts("100", ""))
}
