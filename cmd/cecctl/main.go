// Command cecctl is a thin manual-testing CLI over the cec façade,
// exercising Open/Transmit/poll the way mos/aws/aws.go wires pflag-backed
// flags into a cesanta.com CLI command. It is the "consumer polling loop"
// spec.md calls a thin external surface, kept intentionally minimal.
package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/golang/glog"

	"github.com/hdmicec/gocec/discovery"

	cec "github.com/hdmicec/gocec"
)

var (
	port        = flag.String("port", "", "serial device path; if empty, the first discovered adapter is used")
	baud        = flag.Uint("baud", 38400, "adapter baud rate")
	openTimeout = flag.Duration("open-timeout", 10*time.Second, "how long to wait for the adapter's liveness ping")
	powerOn     = flag.Bool("power-on", false, "send IMAGE_VIEW_ON to the TV and exit")
	standby     = flag.Bool("standby", false, "broadcast STANDBY and exit")
	watch       = flag.Bool("watch", false, "poll and print log/key/command events until interrupted")
)

func main() {
	flag.Parse()

	path := *port
	if path == "" {
		adapters, err := discovery.FindAdapters("")
		if err != nil {
			glog.Exitf("cecctl: %v", err)
		}
		path = adapters[0].Path
		fmt.Fprintf(os.Stderr, "cecctl: using %s\n", path)
	}

	d, err := cec.Open(path, cec.WithBaudRate(*baud), cec.WithOpenTimeout(*openTimeout))
	if err != nil {
		glog.Exitf("cecctl: open %s: %v", path, err)
	}
	defer d.Close()

	switch {
	case *powerOn:
		if err := d.PowerOnDevices(cec.AddressTV); err != nil {
			glog.Exitf("cecctl: power on: %v", err)
		}
	case *standby:
		if err := d.StandbyDevices(cec.AddressBroadcast); err != nil {
			glog.Exitf("cecctl: standby: %v", err)
		}
	case *watch:
		watchEvents(d)
	default:
		fmt.Println("cecctl: nothing to do; pass --power-on, --standby, or --watch")
	}
}

func watchEvents(d *cec.Device) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		d.CheckKeypressTimeout()
		for {
			msg, ok := d.PollLog()
			if !ok {
				break
			}
			fmt.Printf("[%s] %s\n", msg.Level, msg.Text)
		}
		for {
			key, ok := d.PollKey()
			if !ok {
				break
			}
			fmt.Printf("key 0x%02x duration=%dms\n", key.Code, key.DurationMS)
		}
		for {
			cmd, ok := d.PollCommand()
			if !ok {
				break
			}
			fmt.Printf("cmd src=%d dst=%d opcode=0x%02x params=% x\n",
				cmd.Source, cmd.Destination, cmd.Opcode, cmd.Parameters)
		}
	}
}
