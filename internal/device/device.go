// Package device decides once per run whether the models execute on the CPU
// or on a CUDA GPU.
package device

import (
	"fmt"
	"strings"

	"github.com/jaypipes/ghw"

	"diarscribe/internal/services"
)

// Device is the compute device handed to the model processes.
type Device string

const (
	CPU  Device = "cpu"
	CUDA Device = "cuda"
)

// Preference values accepted by Resolve.
const (
	PreferAuto = "auto"
	PreferCPU  = "cpu"
	PreferCUDA = "cuda"
)

// Probe lists the graphics cards visible on the host, one description each.
type Probe func() ([]string, error)

// String implements fmt.Stringer.
func (d Device) String() string { return string(d) }

// IsCUDA reports whether the device is a CUDA GPU.
func (d Device) IsCUDA() bool { return d == CUDA }

// Resolve maps a device preference to a concrete device. "auto" (or empty)
// selects CUDA when the probe reports an NVIDIA card and falls back to CPU when
// none is found or probing fails. A nil probe uses hardware detection.
func Resolve(preference string, probe Probe) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case PreferCPU:
		return CPU, nil
	case PreferCUDA:
		return CUDA, nil
	case "", PreferAuto:
		if probe == nil {
			probe = HostGPUs
		}
		cards, err := probe()
		if err != nil {
			return CPU, nil
		}
		if HasNVIDIA(cards) {
			return CUDA, nil
		}
		return CPU, nil
	default:
		return "", services.Wrap(
			services.ErrConfiguration,
			"startup",
			"resolve device",
			fmt.Sprintf("Unknown device %q (expected auto, cpu or cuda)", preference),
			nil,
		)
	}
}

// HasNVIDIA reports whether any card description names an NVIDIA device.
func HasNVIDIA(cards []string) bool {
	for _, card := range cards {
		if strings.Contains(strings.ToLower(card), "nvidia") {
			return true
		}
	}
	return false
}

// HostGPUs enumerates graphics cards through ghw.
func HostGPUs() ([]string, error) {
	info, err := ghw.GPU()
	if err != nil {
		return nil, err
	}
	cards := make([]string, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		if card == nil {
			continue
		}
		cards = append(cards, card.String())
	}
	return cards, nil
}
