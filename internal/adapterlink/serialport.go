package adapterlink

import (
	"time"

	"github.com/cesanta/go-serial/serial"
	"github.com/juju/errors"
)

// serialPort adapts github.com/cesanta/go-serial/serial.Serial to the
// Port interface, the same role cesanta/go-serial plays for
// common/mgrpc/codec/serial.go's serialCodec.conn field.
type serialPort struct {
	conn serial.Serial
}

// OpenSerialPort is the production OpenFunc passed to Open: it configures
// the port the way serialCodec.Serial does (8N1, no hardware flow control,
// a short inter-character timeout so
// Read returns promptly for the reader goroutine's polling loop).
func OpenSerialPort(path string, baud uint) (Port, error) {
	oo := serial.OpenOptions{
		PortName:              path,
		BaudRate:              baud,
		DataBits:              8,
		ParityMode:            serial.PARITY_NONE,
		StopBits:              1,
		InterCharacterTimeout: uint(ReadPollTimeout / time.Millisecond),
		MinimumReadSize:       0,
	}
	conn, err := serial.Open(oo)
	if err != nil {
		return nil, errors.Annotatef(err, "open serial port %s", path)
	}
	return &serialPort{conn: conn}, nil
}

func (p *serialPort) Read(buf []byte) (int, error) {
	return p.conn.Read(buf)
}

func (p *serialPort) Write(buf []byte) (int, error) {
	return p.conn.Write(buf)
}

func (p *serialPort) Close() error {
	return p.conn.Close()
}

// SetReadTimeout is a no-op beyond documentation: the port's inter-
// character timeout is fixed at open time to ReadPollTimeout, matching
// how serialCodec configures its port once rather than per-read.
func (p *serialPort) SetReadTimeout(time.Duration) error {
	return nil
}
