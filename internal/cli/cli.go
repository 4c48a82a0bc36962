// Package cli parses the gwbasic command line and drives startup: load
// a program file when one is named, auto-run it, and decide between
// exiting (batch input) and the interactive prompt.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"gwbasic/internal/dispatch"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/program"
	"gwbasic/internal/repl"
	"gwbasic/internal/trap"
)

const VERSION = "1.0.0"

// Run is the whole CLI: parse args, start a session, return the process
// exit code.
func Run(args []string) int {
	var file string
	for _, a := range args {
		switch a {
		case "-h", "--help", "-help":
			showUsage()
			return 0
		case "-v", "--version", "-version":
			showVersion()
			return 0
		default:
			if len(a) > 0 && a[0] == '-' {
				fmt.Fprintf(os.Stderr, "gwbasic: unknown option %s\n", a)
				showUsage()
				return 1
			}
			file = a
		}
	}

	rt := dispatch.NewRuntime(interp.New(program.New()))
	traps := trap.NewManager()
	traps.Start(context.Background())
	defer traps.Stop()
	se := repl.NewSession(rt, traps)

	if file != "" {
		if err := dispatch.LoadProgramText(rt.State.Prog, file); err != nil {
			if ge, ok := gwerror.As(err); ok && ge.Code == gwerror.FileNotFound {
				log.Printf("gwbasic: %s: file not found", file)
				return 1
			}
			log.Printf("gwbasic: %s: %v", file, err)
			return 1
		}
		if !se.ExecDirect("RUN") {
			return 0
		}
		if !rt.Term.Interactive() {
			return 0
		}
	}

	if rt.Term.Interactive() {
		showBanner(rt)
	}
	se.Loop()
	return 0
}

// showBanner prints the startup identification the interactive prompt
// leads with.
func showBanner(rt *dispatch.Runtime) {
	rt.Term.WriteString(fmt.Sprintf("gwbasic %s\n%s bytes free\n", VERSION,
		humanize.Comma(int64(rt.State.Host.FreeMemory()))))
}

func showUsage() {
	fmt.Println("Usage: gwbasic [options] [file.bas]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help     Show this help")
	fmt.Println("  -v, --version  Show version")
	fmt.Println()
	fmt.Println("With a file, the program is loaded and run; gwbasic then exits")
	fmt.Println("unless standard input is an interactive terminal, in which case")
	fmt.Println("it drops to the Ok prompt.")
}

func showVersion() {
	fmt.Printf("gwbasic %s\n", VERSION)
}
