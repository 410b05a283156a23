package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/danmuck/floww/internal/config"
	"github.com/danmuck/floww/internal/sheetfile"
)

func main() {
	kind := flag.String("kind", "floww", "template kind: floww|sheet")
	output := flag.String("output", "", "output path for the template")
	validateOnly := flag.Bool("validate", false, "validate an existing file")
	input := flag.String("input", "", "path for validation (defaults to the per-kind path)")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if *validateOnly {
		path := *input
		if path == "" {
			p, err := defaultPath(*kind)
			if err != nil {
				log.Fatal(err)
			}
			path = p
		}
		if err := validate(*kind, path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s file at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		p, err := defaultPath(*kind)
		if err != nil {
			log.Fatal(err)
		}
		target = p
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s template to %s", *kind, target)
}

func defaultPath(kind string) (string, error) {
	switch kind {
	case "floww":
		return "floww.toml", nil
	case "sheet":
		return "sheet.toml", nil
	default:
		return "", fmt.Errorf("unknown kind: %s", kind)
	}
}

func validate(kind, path string) error {
	switch kind {
	case "floww":
		_, err := config.Load(path)
		return err
	case "sheet":
		_, err := sheetfile.Load(path)
		return err
	default:
		return fmt.Errorf("unknown kind: %s", kind)
	}
}
