package main

import (
	"fmt"

	"github.com/bluefox/agrobot/actuator"
)

type PortsCommand struct{}

func (p *PortsCommand) Execute(args []string) error {
	ports, err := actuator.DiscoverPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, name := range ports {
		fmt.Println(name)
	}
	return nil
}
