// Package discovery implements the "adapter enumeration" collaborator
// spec.md names as external to the core library: scanning USB buses for
// the adapter's vendor/product ID and resolving a match to a serial
// device path. It is grounded on mos/flash/common/usb.go's
// OpenUSBDevice, adapted from "return an opened *gousb.Device" to "return
// candidate tty paths", since the core library opens the serial port
// itself rather than taking ownership of a libusb handle.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/juju/errors"
)

// AdapterVendorID and AdapterProductID identify the USB-CEC adapter on
// the bus (spec.md 1, "Non-goals... scanning USB buses for vendor/product
// 0x2548:0x1001").
const (
	AdapterVendorID  = gousb.ID(0x2548)
	AdapterProductID = gousb.ID(0x1001)
)

// AdapterInfo describes one discovered adapter.
type AdapterInfo struct {
	Path         string // serial device path under /dev/serial/by-id
	SerialNumber string
	Bus, Address int
}

// byIDRoot is where udev publishes stable per-device symlinks on Linux;
// discovery prefers these over the kernel's renumbered ttyACM* names.
const byIDRoot = "/dev/serial/by-id"

// FindAdapters enumerates USB devices matching AdapterVendorID/
// AdapterProductID and resolves each to a serial port path. filterSerial,
// if non-empty, restricts the result to the adapter with that USB serial
// number, mirroring OpenUSBDevice's serial-number filter.
func FindAdapters(filterSerial string) ([]AdapterInfo, error) {
	uctx := gousb.NewContext()
	defer uctx.Close()

	devs, err := uctx.OpenDevices(func(dd *gousb.DeviceDesc) bool {
		match := dd.Vendor == AdapterVendorID && dd.Product == AdapterProductID
		glog.V(1).Infof("discovery: considering %+v, match=%v", dd, match)
		return match
	})
	if err != nil && len(devs) == 0 {
		return nil, errors.Annotatef(err, "enumerate USB devices")
	}
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()

	var out []AdapterInfo
	for _, dev := range devs {
		sn, _ := dev.SerialNumber()
		if filterSerial != "" && sn != filterSerial {
			continue
		}
		path, err := resolveTTYPath(dev.Desc.Bus, dev.Desc.Address, sn)
		if err != nil {
			glog.Warningf("discovery: device bus=%d addr=%d sn=%q: %v", dev.Desc.Bus, dev.Desc.Address, sn, err)
			continue
		}
		out = append(out, AdapterInfo{
			Path:         path,
			SerialNumber: sn,
			Bus:          dev.Desc.Bus,
			Address:      dev.Desc.Address,
		})
	}
	if len(out) == 0 {
		return nil, errors.Errorf("no adapter matching %s:%s found", AdapterVendorID, AdapterProductID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// resolveTTYPath maps a matched USB device to its tty path via the
// udev by-id symlink tree; this is the one genuinely platform-specific
// piece spec.md's Design Notes calls out as belonging to the discovery
// helper, not the core.
func resolveTTYPath(bus, address int, serialNumber string) (string, error) {
	entries, err := os.ReadDir(byIDRoot)
	if err != nil {
		return "", errors.Annotatef(err, "read %s", byIDRoot)
	}
	for _, e := range entries {
		name := e.Name()
		if serialNumber != "" && strings.Contains(name, serialNumber) {
			return filepath.Join(byIDRoot, name), nil
		}
	}
	return "", errors.Errorf("no by-id entry for bus=%d address=%d sn=%q", bus, address, serialNumber)
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("%s (sn=%s, bus=%d, addr=%d)", a.Path, a.SerialNumber, a.Bus, a.Address)
}
