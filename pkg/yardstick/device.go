package yardstick

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
)

// ErrTimeout is returned when no matching response arrives in time
var ErrTimeout = errors.New("timeout waiting for response")

type inEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type outEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

// Device is an rfcat dongle reached over its EP5 bulk endpoints
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         inEndpoint
	epOut        outEndpoint

	Serial       string
	Manufacturer string
	Product      string
	ProductID    uint16
	Bus          int
	Address      int

	recvBuf []byte
	recvMu  sync.Mutex
	sendMu  sync.Mutex
}

func isKnownProduct(vendor, product gousb.ID) bool {
	if vendor != gousb.ID(VendorID) {
		return false
	}
	for _, id := range KnownProducts {
		if product == gousb.ID(id) {
			return true
		}
	}
	return false
}

// FindAllDevices opens every attached rfcat dongle
func FindAllDevices(usb *gousb.Context) ([]*Device, error) {
	devices := []*Device{}

	usbDevices, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isKnownProduct(desc.Vendor, desc.Product)
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}

	return devices, nil
}

// ResetAll issues a USB port reset to every attached dongle and returns the
// serials that were reset.
func ResetAll(usb *gousb.Context) ([]string, error) {
	usbDevices, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isKnownProduct(desc.Vendor, desc.Product)
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	var reset []string
	var errs []error
	for _, dev := range usbDevices {
		serial, _ := dev.SerialNumber()
		if err := dev.Reset(); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", serial, err))
		} else {
			reset = append(reset, serial)
		}
		dev.Close()
	}

	return reset, errors.Join(errs...)
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(5)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(5)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	desc := usbDev.Desc
	device := newDevice(epIn, epOut)
	device.usbDevice = usbDev
	device.usbConfig = config
	device.usbInterface = iface
	device.Serial = serial
	device.Manufacturer = manufacturer
	device.Product = product
	device.ProductID = uint16(desc.Product)
	device.Bus = desc.Bus
	device.Address = desc.Address

	device.drainReceiveBuffer()

	return device, nil
}

func newDevice(in inEndpoint, out outEndpoint) *Device {
	return &Device{
		epIn:    in,
		epOut:   out,
		recvBuf: make([]byte, 0, EP5OutBufferSize),
	}
}

// Close idles the radio and releases the USB handles
func (d *Device) Close() error {
	if d.epOut != nil {
		d.idleBestEffort()
	}

	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// drainReceiveBuffer discards data left over from a previous session
func (d *Device) drainReceiveBuffer() {
	buf := make([]byte, 512)
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()
		if err != nil || n == 0 {
			break
		}
	}
	d.recvBuf = d.recvBuf[:0]
}

// idleBestEffort strobes SIDLE without waiting for the response
func (d *Device) idleBestEffort() {
	payload := make([]byte, 3)
	binary.LittleEndian.PutUint16(payload[0:2], RegRFST)
	payload[2] = RFSTSidle

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.epOut.WriteContext(ctx, encodeCommand(AppSystem, SysCmdPoke, payload))
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s %s (Serial: %s)", d.Manufacturer, d.Product, d.Serial)
}

// encodeCommand frames an EP5 command: app, cmd, len(2 LE), payload
func encodeCommand(app, cmd uint8, payload []byte) []byte {
	packet := make([]byte, commandHeaderLen+len(payload))
	packet[0] = app
	packet[1] = cmd
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(payload)))
	copy(packet[commandHeaderLen:], payload)
	return packet
}

var (
	errNoFrame       = errors.New("no complete response")
	errFrameMismatch = errors.New("response for another command")
)

// parseFrame extracts the first complete response from buf. It returns the
// payload and the unconsumed remainder. A complete frame for a different
// app/cmd is consumed and reported as errFrameMismatch.
func parseFrame(buf []byte, app, cmd uint8) ([]byte, []byte, error) {
	markerIdx := -1
	for i, b := range buf {
		if b == ResponseMarker {
			markerIdx = i
			break
		}
	}
	if markerIdx == -1 {
		return nil, buf[:0], errNoFrame
	}

	data := buf[markerIdx:]
	if len(data) < responseHeaderLen {
		return nil, data, errNoFrame
	}

	length := int(binary.LittleEndian.Uint16(data[3:5]))
	total := responseHeaderLen + length
	if len(data) < total {
		return nil, data, errNoFrame
	}

	if data[1] != app || data[2] != cmd {
		return nil, data[total:], errFrameMismatch
	}

	payload := make([]byte, length)
	copy(payload, data[responseHeaderLen:total])
	return payload, data[total:], nil
}

// Send writes a command on EP5 and waits for the matching response
func (d *Device) Send(app uint8, cmd uint8, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout == 0 {
		timeout = USBDefaultTimeout
	}

	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	packet := encodeCommand(app, cmd, payload)

	writeCtx, writeCancel := context.WithTimeout(context.Background(), timeout)
	n, err := d.epOut.WriteContext(writeCtx, packet)
	writeCancel()
	if err != nil {
		if writeCtx.Err() != nil || isTransientUSBError(err) {
			return nil, fmt.Errorf("write timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to write to EP5: %w", err)
	}
	if n != len(packet) {
		return nil, fmt.Errorf("short write: wrote %d of %d bytes", n, len(packet))
	}

	return d.Recv(app, cmd, timeout)
}

// Recv reads EP5 until a response for app/cmd is buffered
func (d *Device) Recv(app uint8, cmd uint8, timeout time.Duration) ([]byte, error) {
	d.recvMu.Lock()
	defer d.recvMu.Unlock()

	if timeout == 0 {
		timeout = USBDefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 512)

	for {
		for {
			payload, rest, err := parseFrame(d.recvBuf, app, cmd)
			d.recvBuf = rest
			if err == nil {
				return payload, nil
			}
			if errors.Is(err, errNoFrame) {
				break
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("app 0x%02X cmd 0x%02X: %w", app, cmd, ErrTimeout)
		}

		// Short reads keep the deadline check responsive
		readTimeout := 100 * time.Millisecond
		if remaining < readTimeout {
			readTimeout = remaining
		}

		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()

		if err != nil {
			if ctx.Err() != nil || isTransientUSBError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read from EP5: %w", err)
		}

		d.recvBuf = append(d.recvBuf, buf[:n]...)
	}
}

func isTransientUSBError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "cancel")
}

// Ping echoes data through the firmware
func (d *Device) Ping(data []byte) error {
	response, err := d.Send(AppSystem, SysCmdPing, data, USBDefaultTimeout)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	if string(response) != string(data) {
		return fmt.Errorf("ping response mismatch: sent %X, got %X", data, response)
	}
	return nil
}

// Peek reads length bytes of XDATA at address
func (d *Device) Peek(address uint16, length uint16) ([]byte, error) {
	// bytecount(2 LE) + address(2 LE)
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], length)
	binary.LittleEndian.PutUint16(payload[2:4], address)

	response, err := d.Send(AppSystem, SysCmdPeek, payload, USBDefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("peek failed at 0x%04X: %w", address, err)
	}
	if len(response) < int(length) {
		return nil, fmt.Errorf("peek at 0x%04X returned %d of %d bytes", address, len(response), length)
	}

	return response, nil
}

// PeekByte reads a single byte of XDATA
func (d *Device) PeekByte(address uint16) (uint8, error) {
	data, err := d.Peek(address, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// Poke writes data to XDATA at address
func (d *Device) Poke(address uint16, data []byte) error {
	// address(2 LE) + data
	payload := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], address)
	copy(payload[2:], data)

	response, err := d.Send(AppSystem, SysCmdPoke, payload, USBDefaultTimeout)
	if err != nil {
		return fmt.Errorf("poke failed at 0x%04X: %w", address, err)
	}

	// The firmware answers with the number of bytes it could not write
	if len(response) >= 2 {
		if left := binary.LittleEndian.Uint16(response[0:2]); left != 0 {
			return fmt.Errorf("poke incomplete at 0x%04X: %d bytes left", address, left)
		}
	}

	return nil
}

// PokeByte writes a single byte of XDATA
func (d *Device) PokeByte(address uint16, value uint8) error {
	return d.Poke(address, []byte{value})
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// GetBuildType returns the firmware build string
func (d *Device) GetBuildType() (string, error) {
	response, err := d.Send(AppSystem, SysCmdBuildType, nil, USBDefaultTimeout)
	if err != nil {
		return "", fmt.Errorf("failed to get build type: %w", err)
	}
	return trimNull(response), nil
}

// GetPartNum returns the chip PARTNUM
func (d *Device) GetPartNum() (uint8, error) {
	response, err := d.Send(AppSystem, SysCmdPartNum, nil, USBDefaultTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to get part number: %w", err)
	}
	if len(response) < 1 {
		return 0, fmt.Errorf("empty part number response")
	}
	return response[0], nil
}

// SetLEDMode switches the dongle LED
func (d *Device) SetLEDMode(mode uint8) error {
	if _, err := d.Send(AppSystem, SysCmdLEDMode, []byte{mode}, USBDefaultTimeout); err != nil {
		return fmt.Errorf("failed to set LED mode: %w", err)
	}
	return nil
}
