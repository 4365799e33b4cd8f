package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fourpole/miniworks/sdk/contracts"
	"github.com/fourpole/miniworks/sdk/miniworks"
	"github.com/fourpole/miniworks/sdk/sysex"
)

func main() {
	client, err := miniworks.NewClient(
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithClientName("MiniWorks Example"),
	)
	if err != nil {
		fmt.Println("Failed to initialize client:", err)
		return
	}
	defer client.Stop()

	devices, err := client.Devices()
	if err != nil || len(devices) == 0 {
		fmt.Println("No MIDI devices found:", err)
		return
	}

	// Pick the first endpoint that looks like the filter; fall back to the
	// first device.
	device := devices[0].Name
	for _, d := range devices {
		if strings.Contains(d.Name, "MiniWorks") || strings.Contains(d.Name, "4-Pole") {
			device = d.Name
			break
		}
	}
	fmt.Println("Using device:", device)

	if err := client.Connect(device, device); err != nil {
		fmt.Println("Failed to connect:", err)
		return
	}

	dumps, err := client.SubscribeSysEx(device)
	if err != nil {
		fmt.Println("Failed to subscribe to SysEx:", err)
		return
	}
	notes, err := client.SubscribeNotes(device)
	if err != nil {
		fmt.Println("Failed to subscribe to notes:", err)
		return
	}

	go func() {
		for msg := range dumps.Events() {
			switch msg.Command {
			case sysex.CmdProgramDump, sysex.CmdProgramBulkDump:
				program, err := msg.Program()
				if err != nil {
					fmt.Println("Bad program dump:", err)
					continue
				}
				fmt.Printf("Program %d: cutoff=%d resonance=%d env=%d\n",
					program.Number, program.Cutoff, program.Resonance, program.FilterEnvAmount)
			case sysex.CmdAllDump:
				dump, err := msg.AllDump()
				if err != nil {
					fmt.Println("Bad all dump:", err)
					continue
				}
				fmt.Printf("Full memory received: %d programs, MIDI channel %d\n",
					len(dump.Programs), dump.Global.Channel)
			default:
				fmt.Println("SysEx:", msg)
			}
		}
	}()

	go func() {
		for ev := range notes.Events() {
			fmt.Printf("%s: channel=%d note=%d velocity=%d\n",
				ev.Kind, ev.Channel, ev.Note, ev.Velocity)
		}
	}()

	if err := client.RequestAllDump(device); err != nil {
		fmt.Println("Failed to request memory dump:", err)
	}

	fmt.Println("Listening... Press Ctrl+C to exit.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
