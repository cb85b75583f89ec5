package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"premaid.json" description:"Configuration file (.json or .yaml)"`

	Ports   PortsCommand   `command:"ports" alias:"setup" description:"Find the doll's serial port and save it"`
	Play    PlayCommand    `command:"play" description:"Play a motion file on the doll"`
	Inspect InspectCommand `command:"inspect" description:"Show the keyframes of a motion file"`
	Send    SendCommand    `command:"send" description:"Send a single order and print the replies"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "premaid - motion player for the Premaid AI servo doll"

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
