// Command riff runs a compiled riff bytecode image. This module's
// surface-grammar parser lives outside this repo, so riff -- unlike a
// language's usual "run this source file" CLI -- loads an
// already-emitted bytecode.Code image rather than compiling source
// itself.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/bytecode"
	"github.com/rootbeersoup/riff/config"
	"github.com/rootbeersoup/riff/vm"
)

func atExit(err error, debug bool) {
	if err == nil {
		return
	}
	if debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "load VM tunables from `file` (TOML)")
	debug := flag.Bool("debug", false, "print a stack trace on fatal errors")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: riff [-config file] [-debug] <image>")
		os.Exit(1)
	}

	var err error
	var cfg *config.Config
	defer func() { atExit(err, *debug || (cfg != nil && cfg.Debug.StackTrace)) }()

	cfg, err = config.Load(*configPath)
	if err != nil {
		return
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		err = errors.Wrapf(err, "riff: open %s", flag.Arg(0))
		return
	}
	defer f.Close()

	code, err := bytecode.Load(f)
	if err != nil {
		err = errors.Wrapf(err, "riff: load %s", flag.Arg(0))
		return
	}

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	inst, err := vm.New(code,
		vm.StackSize(cfg.VM.StackSize),
		vm.Output(stdout),
		vm.Argv(append([]string{os.Args[0]}, flag.Args()...), cfg.Argv.FileFirst),
	)
	if err != nil {
		err = errors.Wrap(err, "riff: initialize VM")
		return
	}

	err = inst.Run()
}
