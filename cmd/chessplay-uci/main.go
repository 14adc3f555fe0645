package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/kagechess/kage/internal/engine"
	"github.com/kagechess/kage/internal/storage"
	"github.com/kagechess/kage/internal/uci"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	// Create engine with 64MB hash table
	// Multi-threaded search enabled (Lazy SMP)
	eng := engine.NewEngine(64)

	// Create and run UCI protocol handler
	protocol := uci.New(eng)
	autoLoadSyzygy(protocol)
	protocol.Run()
}

// autoLoadSyzygy configures tablebase probing from the platform default
// Syzygy directory if it holds any files, so "go" and "tb" commands work without
// requiring a "setoption name SyzygyPath" round trip first.
func autoLoadSyzygy(protocol *uci.UCI) {
	dir, err := storage.GetSyzygyDir()
	if err != nil {
		return
	}
	if entries, err := os.ReadDir(dir); err != nil || len(entries) == 0 {
		return
	}
	protocol.SetSyzygyPath(dir)
}
