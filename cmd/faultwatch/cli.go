package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"tools.zach/dev/faultwatch/internal/control"
	"tools.zach/dev/faultwatch/internal/fault"
)

// ///////////////////////////////////////////////
// Client Mode
// ///////////////////////////////////////////////

// runClient dispatches one CLI subcommand against the running daemon and
// returns the process exit code.
func runClient(dp DataPaths, command string, args []string) int {
	switch command {
	case "version":
		fmt.Println(resolveVersion())
		return 0
	case "status":
		return cmdStatus(dp, args)
	case "dump":
		return cmdDump(dp, args)
	case "watchdog":
		return cmdWatchdog(dp, args)
	case "cancel":
		return cmdCancel(dp)
	case "raise":
		return cmdRaise(dp, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		fmt.Fprintln(os.Stderr, "commands: status, dump, watchdog, cancel, raise, version")
		return 2
	}
}

// connect dials the daemon's control endpoint, translating the
// not-available error into a friendly message.
func connect(dp DataPaths) (*control.Client, error) {
	c := control.NewClient(dp)
	if err := c.Connect(); err != nil {
		if errors.Is(err, control.ErrNotAvailable) {
			return nil, errors.New("daemon not running (start it with: faultwatch)")
		}
		return nil, err
	}
	return c, nil
}

// fail prints err and returns the error exit code.
func fail(err error) int {
	fmt.Fprintln(os.Stderr, "error:", err)
	return 1
}

// ///////////////////////////////////////////////
// Subcommands
// ///////////////////////////////////////////////

func cmdStatus(dp DataPaths, args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	lines := fs.Int("lines", defaultStatusLines, "Log tail lines to show")
	fs.Parse(args)

	c, err := connect(dp)
	if err != nil {
		return fail(err)
	}
	defer c.Close()

	info, err := c.Status(*lines)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("faultwatch %s (pid %d, up %ds)\n", info.Version, info.PID, info.UptimeSeconds)
	fmt.Printf("  crash handler: %s\n", onOff(info.Enabled))
	fmt.Printf("  watchdog:      %s\n", armedIdle(info.WatchdogArmed))
	if len(info.LogTail) > 0 {
		fmt.Println("  recent log:")
		for _, line := range info.LogTail {
			fmt.Println("    " + line)
		}
	}
	return 0
}

func cmdDump(dp DataPaths, args []string) int {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	all := fs.Bool("all", false, "Dump every goroutine")
	fs.Parse(args)

	c, err := connect(dp)
	if err != nil {
		return fail(err)
	}
	defer c.Close()

	dump, err := c.Dump(*all)
	if err != nil {
		return fail(err)
	}
	fmt.Print(dump)
	return 0
}

func cmdWatchdog(dp DataPaths, args []string) int {
	fs := flag.NewFlagSet("watchdog", flag.ExitOnError)
	delay := fs.Int("delay", 60, "Seconds before the watchdog dumps")
	repeat := fs.Bool("repeat", false, "Re-arm after each dump")
	all := fs.Bool("all", false, "Dump every goroutine")
	fs.Parse(args)

	c, err := connect(dp)
	if err != nil {
		return fail(err)
	}
	defer c.Close()

	if err := c.Watchdog(*delay, *repeat, *all); err != nil {
		return fail(err)
	}
	fmt.Printf("watchdog armed: %ds (repeat: %v)\n", *delay, *repeat)
	return 0
}

func cmdCancel(dp DataPaths) int {
	c, err := connect(dp)
	if err != nil {
		return fail(err)
	}
	defer c.Close()

	if err := c.Cancel(); err != nil {
		return fail(err)
	}
	fmt.Println("watchdog cancelled")
	return 0
}

func cmdRaise(dp DataPaths, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: faultwatch raise <%s>\n", signalChoices())
		return 2
	}
	name := args[0]

	c, err := connect(dp)
	if err != nil {
		return fail(err)
	}
	defer c.Close()

	if err := c.Raise(name); err != nil {
		return fail(err)
	}
	fmt.Printf("raising %s in the daemon; expect a crash dump\n", name)
	return 0
}

// ///////////////////////////////////////////////
// Formatting Helpers
// ///////////////////////////////////////////////

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func armedIdle(b bool) string {
	if b {
		return "armed"
	}
	return "idle"
}

// signalChoices joins the platform's fault names for usage text.
func signalChoices() string {
	names := fault.SignalNames()
	out := ""
	for i, n := range names {
		if i > 0 {
			out += "|"
		}
		out += n
	}
	return out
}
