// This tool opens a PDF file and prints its trailer, catalog and page
// count, exercising the core construction pipeline end to end.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/benoitkugler/pdfreader/document"
	"github.com/benoitkugler/pdfreader/pdfconfig"
	"github.com/benoitkugler/pdfreader/progress"
)

func check(err error) {
	if err != nil {
		fmt.Println("fatal error:", err)
		os.Exit(1)
	}
}

func main() {
	strict := flag.Bool("strict", true, "fail construction on the first unmaterializable object")
	verbose := flag.Bool("v", false, "log xref chain hops and repairs at debug level")
	flag.Parse()
	input := flag.Arg(0)
	if input == "" {
		fmt.Println("usage: pdfinspect [-strict] [-v] file.pdf")
		os.Exit(2)
	}

	f, err := os.Open(input)
	check(err)
	defer f.Close()

	info, err := f.Stat()
	check(err)

	conf := pdfconfig.NewDefaultConfiguration()
	conf.StrictMode = *strict
	if *verbose {
		conf.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	tracker := progress.New()
	doc, err := document.Open(f, info.Size(), conf, tracker)
	check(err)

	status, fraction := doc.Progress()
	fmt.Printf("%s (%.0f%%)\n", status, fraction*100)
	fmt.Println("version:", doc.Version())

	trailer, err := doc.GetTrailer(-1)
	check(err)
	fmt.Println("trailer keys:", trailer.Keys())

	catalog, err := doc.GetCatalog(-1)
	check(err)
	fmt.Println("catalog keys:", catalog.Keys())

	pages, err := doc.GetAllPageDicts()
	check(err)
	fmt.Println("page count:", len(pages))
}
