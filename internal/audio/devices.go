package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

func inputDevice(nameOrID string) (*portaudio.DeviceInfo, error) {
	d, err := findDevice(nameOrID, portaudio.DefaultInputDevice, func(d *portaudio.DeviceInfo) bool {
		return d.MaxInputChannels > 0
	})
	if err != nil {
		return nil, fmt.Errorf("get audio input device: %w", err)
	}

	slog.Info(fmt.Sprintf("using audio input device %q, sample rate: %d", d.Name, int(d.DefaultSampleRate)))

	return d, nil
}

func outputDevice(nameOrID string) (*portaudio.DeviceInfo, error) {
	d, err := findDevice(nameOrID, portaudio.DefaultOutputDevice, func(d *portaudio.DeviceInfo) bool {
		return d.MaxOutputChannels > 0
	})
	if err != nil {
		return nil, fmt.Errorf("get audio output device: %w", err)
	}

	slog.Info(fmt.Sprintf("using audio output device %q, sample rate: %d", d.Name, int(d.DefaultSampleRate)))

	return d, nil
}

func findDevice(nameOrID string, defaultDevice func() (*portaudio.DeviceInfo, error), usable func(*portaudio.DeviceInfo) bool) (*portaudio.DeviceInfo, error) {
	if nameOrID == "" {
		return defaultDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list available audio devices: %w", err)
	}

	var d *portaudio.DeviceInfo

	if id, err := strconv.Atoi(nameOrID); err == nil {
		if id < 0 || id >= len(devices) {
			PrintDevices(os.Stderr)
			return nil, fmt.Errorf("audio device %d not found - please specify the ID of an existing device", id)
		}

		d = devices[id]
	} else {
		for _, candidate := range devices {
			if strings.Contains(candidate.Name, nameOrID) && usable(candidate) {
				d = candidate
				break
			}
		}

		if d == nil {
			PrintDevices(os.Stderr)
			return nil, fmt.Errorf("audio device %q not found", nameOrID)
		}
	}

	if !usable(d) {
		PrintDevices(os.Stderr)
		return nil, fmt.Errorf("audio device %q does not support the requested direction or is in use by another program", d.Name)
	}

	return d, nil
}

// PrintDevices writes a table of the available audio devices to w.
func PrintDevices(w io.Writer) {
	devices, err := portaudio.Devices()
	if err != nil {
		slog.Warn("get available audio devices", "err", err)
		return
	}

	fmt.Fprint(w, "\nAvailable audio devices:\n\n")
	fmt.Fprintf(w, "%2s  %-55s  %2s  %3s  %s\n", "ID", "NAME", "IN", "OUT", "SAMPLERATE")
	for i, device := range devices {
		fmt.Fprintf(w, "%2d  %-55s  %2d  %3d  %10d\n", i, device.Name, device.MaxInputChannels, device.MaxOutputChannels, int(device.DefaultSampleRate))
	}
	fmt.Fprintln(w)
}
