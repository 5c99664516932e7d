package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sstallion/go-hid"
)

var (
	hidInitOnce sync.Once
	hidInitErr  error
)

func initHID() error {
	hidInitOnce.Do(func() {
		hidInitErr = hid.Init()
	})
	return hidInitErr
}

// HIDInfo describes an attached HID interface.
type HIDInfo struct {
	Path         string `json:"path" example:"/dev/hidraw3" doc:"Platform device path"`
	VendorID     uint16 `json:"vendor_id" example:"10610" doc:"USB vendor ID"`
	ProductID    uint16 `json:"product_id" example:"2577" doc:"USB product ID"`
	Manufacturer string `json:"manufacturer" example:"FiiO" doc:"Manufacturer string"`
	Product      string `json:"product" example:"FIIO KA17" doc:"Product string"`
	Serial       string `json:"serial,omitempty" doc:"Serial number"`
	UsagePage    uint16 `json:"usage_page" doc:"HID usage page"`
	Interface    int    `json:"interface" doc:"USB interface number"`
}

// EnumerateHID lists attached HID interfaces. A zero vendorID or productID
// matches any.
func EnumerateHID(vendorID, productID uint16) ([]HIDInfo, error) {
	if err := initHID(); err != nil {
		return nil, fmt.Errorf("init hidapi: %w", err)
	}
	var out []HIDInfo
	err := hid.Enumerate(vendorID, productID, func(info *hid.DeviceInfo) error {
		out = append(out, HIDInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			Serial:       info.SerialNbr,
			UsagePage:    info.UsagePage,
			Interface:    info.InterfaceNbr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate HID devices: %w", err)
	}
	return out, nil
}

// hidapiDevice adapts a hidapi handle to HIDDevice.
type hidapiDevice struct {
	dev       *hid.Device
	numbered  bool
	closeOnce sync.Once
	closeErr  error
}

// OpenHID opens the HID interface at path. When numbered is true the device
// uses numbered reports and the leading report ID byte is stripped from
// input reports.
func OpenHID(path string, numbered bool) (HIDDevice, error) {
	if err := initHID(); err != nil {
		return nil, fmt.Errorf("init hidapi: %w", err)
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &hidapiDevice{dev: dev, numbered: numbered}, nil
}

func (d *hidapiDevice) SendReport(reportID byte, data []byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reportID)
	buf = append(buf, data...)
	_, err := d.dev.Write(buf)
	return err
}

func (d *hidapiDevice) ReadReport(buf []byte, timeout time.Duration) (int, error) {
	n, err := d.dev.ReadWithTimeout(buf, timeout)
	if errors.Is(err, hid.ErrTimeout) {
		return 0, nil
	}
	// hidapi surfaces EINTR as an error string; the next poll retries.
	if err != nil && err.Error() == "Interrupted system call" {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if d.numbered && n > 0 {
		copy(buf, buf[1:n])
		n--
	}
	return n, nil
}

func (d *hidapiDevice) Close() error {
	d.closeOnce.Do(func() { d.closeErr = d.dev.Close() })
	return d.closeErr
}
