// Command armrepl is peripheral tooling around the ARM7TDMI core: a
// line-oriented debug REPL, grounded on the original Rust source's
// repl.rs command set (step/regs/reset/quit), driving the core over a
// flat in-memory bus loaded from a raw binary.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"armcore/internal/cpu"
	"armcore/internal/decode"
	"armcore/internal/membus"
	"armcore/rom"
)

func main() {
	fp := flag.String("bin", "", "path to a raw binary to load at --base")
	base := flag.Uint("base", 0, "load address for --bin")
	flag.Parse()
	if *fp == "" {
		log.Fatal("--bin is required")
	}

	image, err := rom.Load(*fp)
	if err != nil {
		log.Fatal(err)
	}

	bus := membus.NewFlatBus(uint32(*base) + uint32(len(image.Data)))
	bus.Load(uint32(*base), image.Data)

	machine := cpu.New(bus, decode.ARM)
	machine.Reset()

	fmt.Println("armcore repl — step [n] | regs | reset | quit")
	runREPL(machine)
}

func runREPL(machine *cpu.CPU) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "step":
			n := 1
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					n = v
				}
			}
			for i := 0; i < n; i++ {
				if err := machine.Step(); err != nil {
					fmt.Println("fault:", err)
					break
				}
			}
		case "regs":
			printRegs(machine.Registers())
		case "reset":
			machine.Reset()
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func printRegs(r *cpu.Registers) {
	for n := uint8(0); n < 16; n++ {
		fmt.Printf("r%-2d=%#010x  ", n, r.R(n))
		if n%4 == 3 {
			fmt.Println()
		}
	}
	c := r.CPSR()
	fmt.Printf("cpsr=%#010x mode=%s state=%s N=%v Z=%v C=%v V=%v\n",
		c.Raw(), r.Mode(), c.State(), c.FlagN(), c.FlagZ(), c.FlagC(), c.FlagV())
}
