package actuator

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bluefox/agrobot/arm"
)

// DefaultDistanceTimeout bounds how long QueryDistance waits for a reply.
const DefaultDistanceTimeout = 200 * time.Millisecond

const lineBuffer = 16

// Conn represents a direct connection to the microcontroller.
//
// A Conn created with a nil ReadWriter is inert: every command is a no-op.
type Conn struct {
	rw io.ReadWriter

	lines     chan string
	closeCh   chan struct{}
	closeOnce sync.Once

	mx  sync.Mutex
	qMx sync.Mutex

	// DistanceTimeout is how long QueryDistance waits for a `D:` line.
	DistanceTimeout time.Duration
}

var _ Link = &Conn{}

// NewConn creates a new Conn using the provided ReadWriter for data.
func NewConn(rw io.ReadWriter) *Conn {
	c := &Conn{
		rw:              rw,
		lines:           make(chan string, lineBuffer),
		closeCh:         make(chan struct{}),
		DistanceTimeout: DefaultDistanceTimeout,
	}
	if rw != nil {
		go c.readLoop()
	}
	return c
}

// Connected reports whether the Conn has an underlying device.
func (c *Conn) Connected() bool { return c.rw != nil }

// Close will abort any in-progress query and close the
// underlying ReadWriter, if it implements io.Closer.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		if closer, ok := c.rw.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return err
}

func (c *Conn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

func (c *Conn) readLoop() {
	scan := bufio.NewScanner(c.rw)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		select {
		case c.lines <- line:
		case <-c.closeCh:
			return
		default:
			// nobody is reading responses
		}
	}
	if err := scan.Err(); err != nil && !c.closed() {
		log.Println("ERROR: read from port:", err)
	}
}

func (c *Conn) write(p []byte) error {
	if c.rw == nil {
		return nil
	}
	if c.closed() {
		return io.ErrClosedPipe
	}
	c.mx.Lock()
	_, err := c.rw.Write(p)
	c.mx.Unlock()
	return err
}

// Send writes a framed `<channel>,<angle>` command. Errors are logged and dropped.
func (c *Conn) Send(ch arm.Channel, angle int) {
	err := c.write(formatCommand(ch, angle))
	if err != nil {
		log.Printf("ERROR: send %s=%d: %v", ch, angle, err)
	}
}

// RequestDiagnosticPing asks the controller to run its self check.
func (c *Conn) RequestDiagnosticPing() {
	c.Send(arm.DiagnosticPing, 0)
}

// WriteByte will write directly to the serial device without framing.
func (c *Conn) WriteByte(b byte) error {
	return c.write([]byte{b})
}

func (c *Conn) drain() {
	for {
		select {
		case <-c.lines:
		default:
			return
		}
	}
}

// QueryDistance asks the range sensor for a reading in centimeters.
//
// Stale input is discarded before the request. Lines without a `D:` label are
// skipped. NoDistance is returned on timeout, a malformed or non-positive
// reading, or when there is no connection.
func (c *Conn) QueryDistance(ctx context.Context) int {
	if c.rw == nil {
		return NoDistance
	}
	c.qMx.Lock()
	defer c.qMx.Unlock()

	c.drain()
	if err := c.write(formatCommand(arm.DistanceQuery, 0)); err != nil {
		log.Println("ERROR: distance query:", err)
		return NoDistance
	}

	timer := time.NewTimer(c.DistanceTimeout)
	defer timer.Stop()
	for {
		select {
		case line := <-c.lines:
			if !hasDistanceLabel(line) {
				continue
			}
			d, err := parseDistance(line)
			if err != nil {
				log.Println("ERROR: parse distance:", err)
				return NoDistance
			}
			if d <= 0 {
				return NoDistance
			}
			return d
		case <-timer.C:
			return NoDistance
		case <-ctx.Done():
			return NoDistance
		case <-c.closeCh:
			return NoDistance
		}
	}
}
