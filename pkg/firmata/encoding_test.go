package firmata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTwoBytes(t *testing.T) {
	for v := 0; v <= MaxTwoByteValue; v++ {
		lsb, msb, err := ToTwoBytes(v)
		require.NoError(t, err)
		require.True(t, lsb < 0x80 && msb < 0x80)
		require.Equal(t, v, FromTwoBytes(lsb, msb))
	}
	_, _, err := ToTwoBytes(MaxTwoByteValue + 1)
	require.Equal(t, ErrValueOutOfRange, err)
	_, _, err = ToTwoBytes(-1)
	require.Equal(t, ErrValueOutOfRange, err)
}

func TestTwoByteString(t *testing.T) {
	require.Equal(t, "StandardFirmata", TwoByteString(StringToTwoBytes("StandardFirmata")))
	require.Equal(t, "ab", TwoByteString([]byte{'a', 0, 'b'}))
	require.Equal(t, "", TwoByteString(nil))
	require.Equal(t, []byte{0x7f, 0x01}, StringToTwoBytes("\xff"))
}

func TestScaleAnalog(t *testing.T) {
	require.Equal(t, 1.0, ScaleAnalog(FromTwoBytes(127, 7)))
	require.Equal(t, 0.7331, ScaleAnalog(FromTwoBytes(110, 5)))
	require.Equal(t, 0.0, ScaleAnalog(0))
	require.Equal(t, 1.0, ScaleAnalog(MaxTwoByteValue))
	require.Equal(t, 0.5005, ScaleAnalog(512))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeInput, ModeOutput, ModeAnalog, ModePWM, ModeServo, ModeI2C} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}
	m, err := ParseMode("pwm")
	require.NoError(t, err)
	require.Equal(t, ModePWM, m)
	_, err = ParseMode("UNAVAILABLE")
	require.Error(t, err)
	require.Equal(t, "MODE(11)", Mode(11).String())
}
