// Maple CLI - inspect and manage a Maple object runtime: load module
// declarations from a project manifest, list classes, print resolution
// orders, and save or restore hierarchy images.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/mkrall/maple/image"
	"github.com/mkrall/maple/lib/runtime"
	"github.com/mkrall/maple/manifest"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	projectDir := flag.String("C", ".", "Project directory (searched upward for maple.toml)")
	persist := flag.Bool("persist", false, "Open the SQLite cell store")
	dbPath := flag.String("db", "", "Cell store path (defaults to $MAPLE_DB)")
	listClasses := flag.Bool("classes", false, "List registered classes")
	mroClass := flag.String("mro", "", "Print the resolution order of a class")
	listLoaded := flag.Bool("loaded", false, "List loaded modules from the ledger")
	saveImage := flag.String("save-image", "", "Write a hierarchy snapshot to the given path")
	loadImage := flag.String("load-image", "", "Restore a hierarchy snapshot from the given path")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: maple [options] [modules...]\n\n")
		fmt.Fprintf(os.Stderr, "Loads the project manifest, preloads its modules plus any named on the\n")
		fmt.Fprintf(os.Stderr, "command line, then runs the requested inspections.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  maple -classes                  # List classes after preload\n")
		fmt.Fprintf(os.Stderr, "  maple Net::Ping -mro Net::Ping::IcmpPing\n")
		fmt.Fprintf(os.Stderr, "  maple -save-image world.image   # Snapshot the hierarchy\n")
		fmt.Fprintf(os.Stderr, "  maple -load-image world.image -loaded\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	cfg := runtime.DefaultConfig()
	cfg.Debug = *verbose
	cfg.Persist = *persist
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		fatal("initializing runtime: %v", err)
	}
	defer rt.Close()

	if *loadImage != "" {
		snap, err := image.ReadFile(rt, *loadImage)
		if err != nil {
			fatal("restoring image: %v", err)
		}
		if *verbose {
			fmt.Printf("Restored %d classes, %d modules from %s\n",
				len(snap.Classes), len(snap.Modules), *loadImage)
		}
	}

	m, err := manifest.FindAndLoad(*projectDir)
	if err != nil {
		fatal("reading manifest: %v", err)
	}
	if m == nil {
		if *verbose {
			fmt.Fprintf(os.Stderr, "Warning: no maple.toml found from %s\n", *projectDir)
		}
	} else {
		loader := manifest.NewLoader(m, rt.Registry, rt.Ledger)
		if err := loader.Preload(); err != nil {
			fatal("%v", err)
		}
		for _, name := range flag.Args() {
			loc, err := loader.Load(name)
			if err != nil {
				fatal("%v", err)
			}
			if *verbose {
				fmt.Printf("Loaded %s from %s\n", name, loc)
			}
		}
	}

	if *listClasses {
		for _, name := range rt.Registry.ClassNames() {
			cls := rt.Registry.Lookup(name)
			line := fmt.Sprintf("%s (%s)", name, cls.Mode)
			if len(cls.Parents) > 0 {
				line += " <- " + strings.Join(cls.Parents, ", ")
			}
			if cls.Version != "" {
				line += " v" + cls.Version
			}
			fmt.Println(line)
		}
	}

	if *mroClass != "" {
		order, diag, err := rt.Registry.ResolutionOrderWithDiag(*mroClass)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Println(strings.Join(order, " -> "))
		if diag != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", diag)
		}
	}

	if *listLoaded {
		for _, path := range rt.Ledger.Paths() {
			loc, _ := rt.Ledger.Location(path)
			fmt.Printf("%s\t%s\n", path, loc)
		}
	}

	if *saveImage != "" {
		if err := image.WriteFile(rt, *saveImage); err != nil {
			fatal("writing image: %v", err)
		}
		if *verbose {
			fmt.Printf("Wrote %s\n", *saveImage)
		}
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
