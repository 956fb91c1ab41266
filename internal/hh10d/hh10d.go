// Package hh10d converts the frequency output of an HH10D humidity sensor
// into relative humidity.
//
// Each HH10D ships with two calibration factors in an M24C02 EEPROM at I2C
// address 0x51:
//
//	Address Factor      Byte
//	10      Sensitivity MSB
//	11      Sensitivity LSB
//	12      Offset      MSB
//	13      Offset      LSB
//
// RH = (offset - frequency) * sensitivity / 2^12
package hh10d

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"periph.io/x/conn/v3"
)

// EEPROMAddress is the fixed I2C address of the calibration EEPROM.
const EEPROMAddress uint16 = 0x51

const (
	factorsRegister = 10
	factorsLen      = 4
)

// ErrNoFrequency is returned when frequency text cannot be parsed.
var ErrNoFrequency = errors.New("hh10d: no frequency")

// Factors are the per-sensor calibration constants.
type Factors struct {
	Sensitivity int
	Offset      int
}

// ReadFactors reads the calibration factors through c, which must address
// the EEPROM.
func ReadFactors(c conn.Conn) (Factors, error) {
	buf := make([]byte, factorsLen)
	if err := c.Tx([]byte{factorsRegister}, buf); err != nil {
		return Factors{}, fmt.Errorf("read calibration factors: %w", err)
	}
	return Factors{
		Sensitivity: int(buf[0])<<8 | int(buf[1]),
		Offset:      int(buf[2])<<8 | int(buf[3]),
	}, nil
}

// Humidity returns relative humidity in percent for a frequency in Hz.
func (f Factors) Humidity(hz int) int {
	return ((f.Offset - hz) * f.Sensitivity) >> 12
}

// ParseFrequency parses a frequency device reading such as "6543\n".
func ParseFrequency(text string) (int, error) {
	s := strings.TrimSpace(text)
	hz, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoFrequency, s)
	}
	if hz <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrNoFrequency, hz)
	}
	return hz, nil
}
