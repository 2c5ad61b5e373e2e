package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// A stand-in for `flutter run`: announces readiness, answers "r" on stdin and
// exits on request.
func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "run" {
		args = args[1:]
	}
	fs := flag.NewFlagSet("fake_tool", flag.ExitOnError)
	readyDelay := fs.Duration("ready-delay", 20*time.Millisecond, "delay before the ready banner")
	noReady := fs.Bool("no-ready", false, "never print the ready banner")
	exitAfter := fs.Duration("exit-after", 0, "exit on its own after this long")
	exitCode := fs.Int("exit-code", 0, "exit code for -exit-after and q")
	ignoreTerm := fs.Bool("ignore-term", false, "ignore SIGTERM")
	_ = fs.Parse(args)

	sigCh := make(chan os.Signal, 1)
	if *ignoreTerm {
		signal.Ignore(syscall.SIGTERM)
	} else {
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	}

	if !*noReady {
		go func() {
			time.Sleep(*readyDelay)
			fmt.Println("Flutter run key commands.")
			fmt.Println("r Hot reload.")
		}()
	}
	if *exitAfter > 0 {
		go func() {
			time.Sleep(*exitAfter)
			os.Exit(*exitCode)
		}()
	}

	go func() {
		reloads := 0
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			for _, b := range buf[:n] {
				switch b {
				case 'r':
					reloads++
					fmt.Printf("reloaded %d\n", reloads)
				case 'q':
					os.Exit(*exitCode)
				}
			}
			if err != nil {
				return
			}
		}
	}()

	<-sigCh
}
