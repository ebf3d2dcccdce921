package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotobash/gciso"
)

const usage = `gciso - GameCube disc image tool

Usage:
  gciso [flags] <image> extract     Extract every file from the image
  gciso [flags] <image> save        Rebuild the image into a new file

Flags:
  -o, -output PATH      Output directory (extract) or output image path (save)
  -with_system_files    Include the system region as a synthetic system.bin
  -defragment           Repack file data against the system region first

Examples:
  gciso -o out/ game.iso extract
  gciso -defragment -o packed.iso game.iso save
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fl := flag.NewFlagSet("gciso", flag.ContinueOnError)
	fl.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	withSystem := fl.Bool("with_system_files", false, "include the system region as system.bin")
	defragment := fl.Bool("defragment", false, "repack file data before the action")
	var output string
	fl.StringVar(&output, "output", "", "output directory or image path")
	fl.StringVar(&output, "o", "", "shorthand for -output")

	if err := fl.Parse(args); err != nil {
		return 2
	}
	rest := fl.Args()
	if len(rest) != 2 {
		fl.Usage()
		return 2
	}
	imagePath, action := rest[0], rest[1]

	switch action {
	case "extract", "save":
	default:
		fmt.Fprintf(os.Stderr, "gciso: unknown action %q\n", action)
		fl.Usage()
		return 2
	}
	if action == "save" && output == "" {
		fmt.Fprintln(os.Stderr, "gciso: save requires -o PATH")
		return 2
	}

	if err := execute(imagePath, action, output, *withSystem, *defragment); err != nil {
		fmt.Fprintf(os.Stderr, "gciso: %s\n", err)
		return 1
	}
	return 0
}

func execute(imagePath, action, output string, withSystem, defragment bool) error {
	eng, err := gciso.OpenPath(imagePath, false, gciso.WithProgress(printProgress))
	if err != nil {
		return err
	}
	defer eng.Close()

	if defragment {
		if err := eng.Defragment(); err != nil {
			return err
		}
	}

	switch action {
	case "extract":
		if output == "" {
			output = "."
		}
		return extractAll(eng, output, withSystem)
	case "save":
		return eng.SaveToPath(output)
	}
	return nil
}

// extractAll writes every file in the image under dir, recreating the FST's
// directory structure.
func extractAll(eng *gciso.Engine, dir string, withSystem bool) error {
	tree := eng.FST()
	for _, entry := range tree.ListAll() {
		path := filepath.Join(dir, filepath.FromSlash(tree.Path(entry)))
		if entry.IsDir {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
			continue
		}
		f, err := eng.Extract(entry.Name)
		if err != nil {
			return err
		}
		data, err := f.Bytes()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}

	if withSystem {
		blob, err := eng.ExtractSystemBlob()
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "system.bin"), blob, 0o644)
	}
	return nil
}

func printProgress(stage string, done, total int) {
	if stage != "write" {
		return
	}
	fmt.Fprintf(os.Stderr, "\rwriting files %d/%d", done, total)
	if done == total {
		fmt.Fprintln(os.Stderr)
	}
}
