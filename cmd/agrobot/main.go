package main

import (
	"log"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/bluefox/agrobot/config"
)

type Options struct {
	Config string `short:"c" long:"config" default:"agrobot.yaml" description:"YAML configuration file"`

	Serve ServeCommand `command:"serve" description:"Run the controller with its web control surface"`
	Ports PortsCommand `command:"ports" description:"List serial ports"`
	Shell ShellCommand `command:"shell" description:"Drive the arm from an interactive shell"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, err
	}
	cleanup, err := config.ConfigureLogging(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cleanup, nil
}

func main() {
	log.SetFlags(log.Lshortfile)
	parser.LongDescription = "agrobot - harvester arm, sprayer and car controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
