package firmata

import "math"

// MaxTwoByteValue is the largest value encoded by two 7-bit bytes.
const MaxTwoByteValue = 1<<14 - 1

// maxAnalogRaw is the full scale of a 10-bit analog report.
const maxAnalogRaw = 1023

// ToTwoBytes splits v into two 7-bit bytes, LSB first.
func ToTwoBytes(v int) (lsb, msb byte, err error) {
	if v < 0 || v > MaxTwoByteValue {
		return 0, 0, ErrValueOutOfRange
	}
	return byte(v & 0x7f), byte(v >> 7), nil
}

// FromTwoBytes joins two 7-bit bytes, LSB first.
func FromTwoBytes(lsb, msb byte) int {
	return int(msb&0x7f)<<7 | int(lsb&0x7f)
}

// appendTwoBytes appends v as two 7-bit bytes.
func appendTwoBytes(b []byte, v int) ([]byte, error) {
	lsb, msb, err := ToTwoBytes(v)
	if err != nil {
		return b, err
	}
	return append(b, lsb, msb), nil
}

// TwoByteString decodes a string sent as 2 bytes per character.
// A trailing odd byte is taken as a character with zero MSB.
func TwoByteString(data []byte) string {
	chars := make([]byte, 0, (len(data)+1)/2)
	for i := 0; i < len(data); i += 2 {
		var msb byte
		if i+1 < len(data) {
			msb = data[i+1]
		}
		chars = append(chars, byte(FromTwoBytes(data[i], msb)))
	}
	return string(chars)
}

// StringToTwoBytes encodes a string as 2 bytes per character.
func StringToTwoBytes(s string) []byte {
	data := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		data = append(data, s[i]&0x7f, s[i]>>7)
	}
	return data
}

// ScaleAnalog converts a raw analog report into [0, 1] rounded to 4 digits.
func ScaleAnalog(raw int) float64 {
	return clamp01(math.Round(float64(raw)/maxAnalogRaw*1e4) / 1e4)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
