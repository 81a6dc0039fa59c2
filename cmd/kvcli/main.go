// Command kvcli is a minimal command-line front end over the embedded
// engine, in the spirit of the teacher's own demo mains, but a real
// subcommand dispatcher instead of a hardcoded script. The interactive
// shell and any network front end remain out of THE CORE's scope
// (spec.md §1); this is the one collaborator specified at its interface.
package main

import (
	"fmt"
	"log"
	"os"

	"minilsm/internal/config"
	"minilsm/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	dataDir := os.Getenv("KVCLI_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	walPath := os.Getenv("KVCLI_WAL_PATH")
	if walPath == "" {
		walPath = "temp/wal.log"
	}

	e, err := engine.Open(config.WithDataDir(dataDir), config.WithWALPath(walPath))
	if err != nil {
		log.Fatalf("kvcli: %v", err)
	}
	defer e.Close()

	switch cmd := os.Args[1]; cmd {
	case "put":
		if len(os.Args) != 4 {
			usage()
			os.Exit(2)
		}
		if err := e.Put(os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("kvcli: put: %v", err)
		}
	case "get":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		value, ok := e.Get(os.Args[2])
		if !ok {
			fmt.Println("(absent)")
			os.Exit(1)
		}
		fmt.Println(value)
	case "delete":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		if err := e.Delete(os.Args[2]); err != nil {
			log.Fatalf("kvcli: delete: %v", err)
		}
	case "flush":
		if err := e.Flush(); err != nil {
			log.Fatalf("kvcli: flush: %v", err)
		}
	case "compact":
		if err := e.Compact(); err != nil {
			log.Fatalf("kvcli: compact: %v", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvcli put <key> <value> | get <key> | delete <key> | flush | compact")
	fmt.Fprintln(os.Stderr, "data directory and WAL path come from KVCLI_DATA_DIR / KVCLI_WAL_PATH (default '.', 'temp/wal.log')")
}
