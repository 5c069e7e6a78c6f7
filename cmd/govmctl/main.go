// Command govmctl is a single-shot CLI over one govm.Library: it opens a
// backing-store directory, performs one operation, and exits. It does not
// run as a server and does not talk to any other process — the library's
// scope excludes networking and multi-process coordination, so there is
// nothing here to listen on.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tombuente/govm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  govmctl -dir <data-dir> map <name> <size>\n")
	fmt.Fprintf(os.Stderr, "  govmctl -dir <data-dir> write <name> <size> <offset>   (reads bytes from stdin)\n")
	fmt.Fprintf(os.Stderr, "  govmctl -dir <data-dir> cat <name> <size>\n")
	fmt.Fprintf(os.Stderr, "  govmctl -dir <data-dir> truncate-log\n")
	os.Exit(1)
}

func main() {
	dir := flag.String("dir", "", "path to the backing-store directory")
	fsync := flag.Bool("fsync", false, "fsync each committed segment's log file")
	flag.Parse()

	if *dir == "" || flag.NArg() < 1 {
		usage()
	}

	lib, err := govm.Open(*dir, govm.WithFsync(*fsync))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %q: %v\n", *dir, err)
		os.Exit(1)
	}

	args := flag.Args()
	switch args[0] {
	case "map":
		if len(args) != 3 {
			usage()
		}
		runMap(lib, args[1], args[2])

	case "write":
		if len(args) != 4 {
			usage()
		}
		runWrite(lib, args[1], args[2], args[3])

	case "cat":
		if len(args) != 3 {
			usage()
		}
		runCat(lib, args[1], args[2])

	case "truncate-log":
		if len(args) != 1 {
			usage()
		}
		if err := lib.TruncateLog(); err != nil {
			fmt.Fprintf(os.Stderr, "truncate-log: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid integer %q: %v\n", s, err)
		os.Exit(1)
	}
	return n
}

func runMap(lib *govm.Library, name, sizeStr string) {
	seg, err := lib.Map(name, atoi(sizeStr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "map %q: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("mapped %q (%d bytes)\n", seg.Name(), seg.Size())
}

func runWrite(lib *govm.Library, name, sizeStr, offsetStr string) {
	seg, err := lib.Map(name, atoi(sizeStr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "map %q: %v\n", name, err)
		os.Exit(1)
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
		os.Exit(1)
	}
	offset := atoi(offsetStr)

	tx, err := lib.Begin(seg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "begin: %v\n", err)
		os.Exit(1)
	}

	if err := tx.AboutToModify(seg, offset, len(data)); err != nil {
		fmt.Fprintf(os.Stderr, "about-to-modify: %v\n", err)
		_ = tx.Rollback()
		os.Exit(1)
	}

	copy(seg.Bytes()[offset:offset+len(data)], data)

	if err := tx.Commit(); err != nil {
		fmt.Fprintf(os.Stderr, "commit: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("committed %d bytes to %q at offset %d\n", len(data), name, offset)
}

func runCat(lib *govm.Library, name, sizeStr string) {
	seg, err := lib.Map(name, atoi(sizeStr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "map %q: %v\n", name, err)
		os.Exit(1)
	}
	os.Stdout.Write(seg.Bytes())
}
