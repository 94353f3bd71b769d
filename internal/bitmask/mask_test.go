package bitmask

import "testing"

import "github.com/stretchr/testify/assert"

func TestRange(t *testing.T) {
	// 0b1101_1000, bits [3:4] (0-indexed from LSB) -> 0b11
	assert.Equal(t, byte(0b11), Range(0b1101_1000, Bit3, Bit4))
}

func TestIsSet(t *testing.T) {
	assert.True(t, IsSet(0b0000_0001, Bit0))
	assert.False(t, IsSet(0b0000_0001, Bit1))
	assert.True(t, IsSet(0b1000_0000, Bit7))
}

func TestSetClear(t *testing.T) {
	assert.Equal(t, byte(0b0000_0010), Set(0, Bit1))
	assert.Equal(t, byte(0), Clear(0b0000_0010, Bit1))
}

func TestAssign(t *testing.T) {
	assert.Equal(t, byte(0b0000_0100), Assign(0, Bit2, true))
	assert.Equal(t, byte(0), Assign(0b0000_0100, Bit2, false))
}
