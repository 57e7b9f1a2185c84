/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package serial

import (
	"errors"
	"io"
	"io/fs"
	"sync"
	"time"

	goserial "go.bug.st/serial"

	"github.com/fuel-analytics/go-fuel/pkg/log"
)

const (
	DefaultBaudRate    = 57600
	DefaultReadTimeout = 2 * time.Second
)

// Port is the part of a serial port the connection needs.
// go.bug.st/serial ports return 0 bytes and no error when the read timeout expires.
type Port interface {
	io.Reader
	io.Closer
	SetReadTimeout(t time.Duration) error
}

// Connection owns one open serial port and reads fixed size frames from it.
// It is not meant to be shared between concurrent readers.
type Connection struct {
	mu          sync.Mutex
	device      string
	port        Port
	readTimeout time.Duration
	open        bool
}

// Open opens the device in 8N1 mode
func Open(device string, baudRate int, readTimeout time.Duration) (*Connection, error) {
	if device == "" {
		return nil, ErrConnection{What: "device is not specified"}
	}
	log.Debug("Opening serial port: device: %s baud rate: %d read timeout: %s", device, baudRate, readTimeout)
	mode := &goserial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}
	port, err := goserial.Open(device, mode)
	if err != nil {
		return nil, ErrConnection{Device: device, What: describeOpenError(err), Err: err}
	}
	return NewConnection(device, port, readTimeout), nil
}

// NewConnection wraps an already open port
func NewConnection(device string, port Port, readTimeout time.Duration) *Connection {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Connection{
		device:      device,
		port:        port,
		readTimeout: readTimeout,
		open:        true,
	}
}

func describeOpenError(err error) string {
	var portErr *goserial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case goserial.PortBusy:
			return "port is busy"
		case goserial.PortNotFound:
			return "port not found"
		case goserial.PermissionDenied:
			return "permission denied"
		case goserial.InvalidSerialPort:
			return "not a serial port"
		case goserial.InvalidSpeed:
			return "unsupported baud rate"
		}
		return "can not open port"
	}
	if errors.Is(err, fs.ErrNotExist) {
		return "port not found"
	}
	if errors.Is(err, fs.ErrPermission) {
		return "permission denied"
	}
	return "can not open port"
}

func (c *Connection) Device() string {
	return c.device
}

func (c *Connection) ReadTimeout() time.Duration {
	return c.readTimeout
}

func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// ReadFrame blocks until size bytes arrived or the read timeout elapsed.
// A partially filled frame is never returned, it is reported as ErrShortRead.
func (c *Connection) ReadFrame(size int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrState{What: "read from a closed connection"}
	}
	if size <= 0 {
		return nil, ErrState{What: "frame size must be positive"}
	}

	buf := make([]byte, size)
	got := 0
	deadline := time.Now().Add(c.readTimeout)
	for got < size {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := c.port.SetReadTimeout(remaining); err != nil {
			return nil, ErrConnection{Device: c.device, What: "can not set read timeout", Err: err}
		}
		n, err := c.port.Read(buf[got:])
		got += n
		if err != nil {
			return nil, ErrConnection{Device: c.device, What: "read failed", Err: err}
		}
		if n == 0 {
			// read timeout expired
			break
		}
	}

	switch {
	case got == 0:
		return nil, ErrTimeout{Device: c.device, Timeout: c.readTimeout}
	case got < size:
		return nil, ErrShortRead{Device: c.device, Want: size, Got: got}
	}
	return buf, nil
}

// Close releases the port. Closing a closed connection does nothing.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false
	log.Debug("Closing serial port: device: %s", c.device)
	return c.port.Close()
}
