package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/metaforge/unitmeta/blobfile"
	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/metadata"
)

func main() {
	var (
		metaFile    = flag.String("meta", "", "Path to metadata blob (raw or container file)")
		list        = flag.Bool("list", false, "List indexed records and exit")
		header      = flag.Bool("header", false, "Print the unit header and exit")
		itemID      = flag.Uint64("id", 0, "Print one record by local id")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *metaFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: metadump -meta <file> -header")
		fmt.Fprintln(os.Stderr, "       metadump -meta <file> -list")
		fmt.Fprintln(os.Stderr, "       metadump -meta <file> -id <n>")
		fmt.Fprintln(os.Stderr, "       metadump -meta <file> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*metaFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*metaFile, *header, *list, *itemID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadBlob reads a metadata file and opens it. Container framing is
// optional: a raw frame written by metadata.Encode works too.
func loadBlob(path string) (*metadata.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if raw, err := blobfile.Decode(data); err == nil {
		data = raw
	}
	blob, err := metadata.Open(data)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return blob, nil
}

func run(path string, header, list bool, itemID uint64) error {
	blob, err := loadBlob(path)
	if err != nil {
		return err
	}

	name, err := blob.Name()
	if err != nil {
		return err
	}
	triple, err := blob.Triple()
	if err != nil {
		return err
	}
	fmt.Printf("Unit: %s (%s)\n", name, triple)

	if header {
		return printHeader(blob)
	}
	if itemID != 0 {
		it, err := blob.Item(decl.LocalID(uint32(itemID)))
		if err != nil {
			return err
		}
		return printItem(blob, it)
	}
	if list {
		return printList(blob)
	}
	return printHeader(blob)
}

func printHeader(blob *metadata.Blob) error {
	hash, err := blob.Hash()
	if err != nil {
		return err
	}
	fmt.Printf("Hash: %s\n", hash)

	deps, err := blob.Deps()
	if err != nil {
		return err
	}
	fmt.Printf("Deps: %d\n", len(deps))
	for _, d := range deps {
		fmt.Printf("  %d %s %s\n", d.Num, d.Name, d.Hash)
	}

	langs, err := blob.LangItems()
	if err != nil {
		return err
	}
	for _, l := range langs {
		fmt.Printf("Lang item: slot %d -> %s\n", l.Slot, l.ID)
	}

	libs, err := blob.NativeLibs()
	if err != nil {
		return err
	}
	for _, l := range libs {
		fmt.Printf("Native lib: %s (kind %d)\n", l.Name, l.Kind)
	}

	files, err := blob.Files()
	if err != nil {
		return err
	}
	fmt.Printf("Files: %d\n", len(files))

	macros, err := blob.Macros()
	if err != nil {
		return err
	}
	for _, m := range macros {
		fmt.Printf("Macro: %s\n", m.Name)
	}

	eager, err := blob.EagerImpls()
	if err != nil {
		return err
	}
	if len(eager) > 0 {
		fmt.Printf("Eager impls: %s\n", idListStr(eager))
	}

	reach, err := blob.ReachableExterns()
	if err != nil {
		return err
	}
	if len(reach) > 0 {
		fmt.Printf("Reachable externs: %s\n", idListStr(reach))
	}

	root, err := blob.RootChildren()
	if err != nil {
		return err
	}
	fmt.Printf("Root children: %s\n", idListStr(root))

	exports, err := blob.RootReexports()
	if err != nil {
		return err
	}
	for _, e := range exports {
		fmt.Printf("Reexport: %s -> %s\n", e.Name, e.Target)
	}
	return nil
}

func printList(blob *metadata.Blob) error {
	type row struct {
		id   decl.ID
		kind decl.Kind
		name string
		path string
	}
	var rows []row
	err := blob.EachItem(func(it *metadata.Item) error {
		id, err := it.ID()
		if err != nil {
			return err
		}
		kind, err := it.Kind()
		if err != nil {
			return err
		}
		name, err := it.Name()
		if err != nil {
			return err
		}
		path, err := it.Path()
		if err != nil {
			return err
		}
		rows = append(rows, row{id, kind, name, strings.Join(path, "::")})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id.Index < rows[j].id.Index })
	for _, r := range rows {
		fmt.Printf("%-10s %-14s %-24s %s\n", r.id, r.kind, r.name, r.path)
	}
	return nil
}

func printItem(blob *metadata.Blob, it *metadata.Item) error {
	lines, err := itemDetail(blob, it)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func idListStr(ids []decl.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
