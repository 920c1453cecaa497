// kdump inspects a code cache: it lists the compiled units in a cache
// database and prints the snippet directory and relocation records of
// individual units.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/karstvm/karst/pkg/codecache"
	"github.com/karstvm/karst/pkg/codegen"
	"github.com/karstvm/karst/pkg/target"
)

func main() {
	cachePath := flag.String("cache", "", "Path to the code cache database (required)")
	targetPath := flag.String("target", "", "Target description TOML (defaults to the built-in z64 target)")
	unitID := flag.String("unit", "", "Dump a single unit by ID instead of listing")
	hexDump := flag.Bool("hex", false, "Include a hex dump of the unit's code")
	verbosity := flag.Int("v", 0, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kdump -cache <db> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Inspects compiled units persisted in a code cache.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kdump -cache karst.db                 # List cached units\n")
		fmt.Fprintf(os.Stderr, "  kdump -cache karst.db -unit <id>      # Dump one unit\n")
		fmt.Fprintf(os.Stderr, "  kdump -cache karst.db -unit <id> -hex # Include the code bytes\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	if *cachePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	tgt := target.Default()
	if *targetPath != "" {
		loaded, err := target.Load(*targetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tgt = loaded
	}

	cache, err := codecache.Open(*cachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	if *unitID == "" {
		if err := listUnits(cache); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := dumpUnit(cache, tgt, *unitID, *hexDump); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func listUnits(cache *codecache.Cache) error {
	infos, err := cache.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("cache is empty")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %s\n", info.ID, info.Method)
	}
	return nil
}

func dumpUnit(cache *codecache.Cache, tgt target.Target, id string, hex bool) error {
	u, err := cache.Get(id)
	if err != nil {
		if errors.Is(err, codecache.ErrUnitNotFound) {
			return fmt.Errorf("no unit %s in cache", id)
		}
		return err
	}

	fmt.Printf("unit    %s\n", u.ID)
	fmt.Printf("method  %s\n", u.Method)
	fmt.Printf("target  %s, %d-byte pointers\n", tgt.Arch, tgt.PointerWidth)
	fmt.Printf("base    %#x\n", u.Base)
	fmt.Printf("code    %d bytes\n", len(u.Code))

	if len(u.Snippets) > 0 {
		fmt.Println("\nsnippets:")
		for _, s := range u.Snippets {
			name := s.Label
			if name == "" {
				name = "(anonymous)"
			}
			fmt.Printf("  %-16s %-20s offset %#06x  length %d\n", s.Kind, name, s.Offset, s.Length)
		}
	}

	if len(u.Relocations) > 0 {
		fmt.Println("\nrelocations:")
		for _, r := range u.Relocations {
			fmt.Printf("  %-16s %s#%d at +%#x/%d\n",
				codegen.RelocationKind(r.Kind), r.Symbol, r.RefNumber, r.Offset, r.Width)
		}
	}

	if hex {
		fmt.Println("\ncode:")
		printHex(u.Code, u.Base)
	}
	return nil
}

func printHex(code []byte, base uint64) {
	for i := 0; i < len(code); i += 16 {
		end := i + 16
		if end > len(code) {
			end = len(code)
		}
		fmt.Printf("  %08x  % x\n", base+uint64(i), code[i:end])
	}
}
