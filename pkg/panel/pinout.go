package panel

import "fmt"

// DefaultChipNumber is the GPIO character device used by both driver
// variants on a Raspberry Pi, matching cmd/hub75-gpio/main.go's
// "gpiochip0" (the teacher's RenderFrame comment notes pin numbers there
// were offset +512 for an older Pi 5 kernel's global numbering; gpiocdev's
// per-chip RequestLine takes plain BCM numbers, which is what's returned
// below).
const DefaultChipNumber = "gpiochip0"

// adafruitHATPins is the Adafruit RGB Matrix Bonnet wiring, grounded
// directly on cmd/hub75-gpio/main.go's HUB75Config literal (R1Pin: 5,
// G1Pin: 13, ... EPin: 24, with the teacher's own +512 Pi-5 numbering
// offset stripped since it is handled by chip selection instead).
func adafruitHATPins() HUB75Pins {
	return HUB75Pins{
		R1: 5, G1: 13, B1: 6,
		R2: 12, G2: 16, B2: 23,
		CLK: 17, OE: 4, LAT: 21,
		AddrPins: []int{22, 26, 27, 20, 24},
	}
}

// ResolvePins maps a spec.md §6 --hardware-mapping identifier to its
// HUB75Pins. "adafruit-hat" is the only mapping grounded in the teacher
// repo; any other identifier is an unrecognized-mapping startup error
// per spec.md §7's "panel config validation errors abort process startup".
func ResolvePins(mapping string) (HUB75Pins, error) {
	switch mapping {
	case "adafruit-hat", "":
		return adafruitHATPins(), nil
	default:
		return HUB75Pins{}, fmt.Errorf("panel: unrecognized hardware-mapping %q", mapping)
	}
}
