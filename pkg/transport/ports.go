package transport

import (
	"fmt"
	"sort"

	"go.bug.st/serial"
)

// ListPorts returns the serial ports present on this machine, sorted. The doll
// pairs as a Bluetooth serial port, so those are not filtered out.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
