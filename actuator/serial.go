package actuator

import (
	"log"
	"strings"
	"time"

	"github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Options configure how the serial connection is established.
type Options struct {
	// Ports are tried in order.
	Ports []string `yaml:"ports" env:"AGROBOT_SERIAL_PORTS" envSeparator:","`
	Baud  int      `yaml:"baud" env:"AGROBOT_SERIAL_BAUD"`

	// Discover appends the ports reported by the operating system to Ports.
	Discover bool `yaml:"discover" env:"AGROBOT_SERIAL_DISCOVER"`

	// ResetDelay is waited after opening a port; most boards reboot on connect.
	ResetDelay time.Duration `yaml:"resetDelay" env:"AGROBOT_SERIAL_RESET_DELAY"`

	DistanceTimeout time.Duration `yaml:"distanceTimeout" env:"AGROBOT_SERIAL_DISTANCE_TIMEOUT"`
}

// Open connects to the first candidate port that opens.
//
// If none can be opened the returned Conn is inert, so the rest of the
// system keeps running without hardware.
func Open(opt Options) *Conn {
	candidates := opt.Ports
	if opt.Discover {
		found, err := DiscoverPorts()
		if err != nil {
			log.Println("ERROR: list ports:", err)
		}
		candidates = mergePorts(candidates, found)
	}
	if opt.Baud == 0 {
		opt.Baud = 9600
	}

	for _, name := range candidates {
		port, err := serial.OpenPort(&serial.Config{Name: name, Baud: opt.Baud})
		if err != nil {
			log.Printf("open %s: %v", name, err)
			continue
		}
		log.Println("Connected to controller on", name)
		time.Sleep(opt.ResetDelay)

		c := NewConn(port)
		if opt.DistanceTimeout > 0 {
			c.DistanceTimeout = opt.DistanceTimeout
		}
		return c
	}

	log.Println("WARNING: controller not connected; actuator commands are disabled")
	return NewConn(nil)
}

// DiscoverPorts lists the serial ports present on the system.
func DiscoverPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, err
	}
	res := ports[:0]
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func mergePorts(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	res := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, p := range list {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			res = append(res, p)
		}
	}
	return res
}
