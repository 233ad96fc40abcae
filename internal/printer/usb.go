package printer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when the printer cannot be opened.
var ErrNotConnected = errors.New("printer not connected")

// Conn is an open printer connection.
type Conn interface {
	io.WriteCloser
}

// Connector opens printer connections.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// USBConfig identifies the printer on the USB bus.
type USBConfig struct {
	VendorID    uint16
	ProductID   uint16
	OutEndpoint int
	Logger      *zap.Logger
}

// USBConnector opens the printer with libusb through gousb.
type USBConnector struct {
	config USBConfig
}

// NewUSBConnector creates a USBConnector.
func NewUSBConnector(config USBConfig) *USBConnector {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &USBConnector{config: config}
}

type autoDetacher interface {
	SetAutoDetach(bool) error
}

// enableAutoDetach lets libusb unbind the kernel usblp driver while the
// interface is held. Platforms without kernel drivers (Windows, macOS) report
// the call as unsupported; claiming still works there.
func enableAutoDetach(dev autoDetacher, log *zap.Logger) {
	if err := dev.SetAutoDetach(true); err != nil {
		log.Debug("usb auto detach unavailable", zap.Error(err))
	}
}

// Connect opens the device, claims its default interface and returns the
// bulk OUT endpoint. It returns an error wrapping ErrNotConnected if the
// device is absent or busy.
func (u *USBConnector) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(u.config.VendorID), gousb.ID(u.config.ProductID))
	if err != nil {
		usbCtx.Close()
		return nil, fmt.Errorf("%w: open %04x:%04x: %v", ErrNotConnected, u.config.VendorID, u.config.ProductID, err)
	}
	if dev == nil {
		usbCtx.Close()
		return nil, fmt.Errorf("%w: device %04x:%04x not found", ErrNotConnected, u.config.VendorID, u.config.ProductID)
	}

	enableAutoDetach(dev, u.config.Logger)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("%w: claim interface: %v", ErrNotConnected, err)
	}

	ep, err := intf.OutEndpoint(u.config.OutEndpoint & 0x0f)
	if err != nil {
		done()
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("%w: out endpoint %#02x: %v", ErrNotConnected, u.config.OutEndpoint, err)
	}

	return &usbConn{ctx: usbCtx, dev: dev, done: done, ep: ep}, nil
}

type usbConn struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	ep   *gousb.OutEndpoint
}

func (c *usbConn) Write(p []byte) (int, error) {
	return c.ep.Write(p)
}

func (c *usbConn) Close() error {
	c.done()
	err := c.dev.Close()
	if cerr := c.ctx.Close(); err == nil {
		err = cerr
	}
	return err
}
