// Command p1parse decodes captured P1 telegrams from a file or stdin and
// prints the reading sets as JSON. Useful for checking what a meter emits
// before pointing the gateway at it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"p1gateway/internal/auth"
	"p1gateway/internal/obis"
	"p1gateway/internal/telegram"
)

func main() {
	noCRC := flag.Bool("no-crc", false, "skip checksum verification")
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for the operator password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	input := os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	if err := run(input, os.Stdout, *noCRC); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(r io.Reader, w io.Writer, noCRC bool) error {
	var scanner *telegram.Scanner
	if noCRC {
		scanner = telegram.NewScannerNoCRC(r)
	} else {
		scanner = telegram.NewScanner(r)
	}
	parser := telegram.NewParser(obis.DefaultTable())

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	for {
		tg, err := scanner.Next()
		if err == io.EOF {
			if dropped := scanner.Dropped(); dropped > 0 {
				fmt.Fprintf(os.Stderr, "dropped %d telegrams with bad checksum\n", dropped)
			}
			return nil
		}
		if err != nil {
			return err
		}

		result, err := parser.ParseTelegram(tg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		for _, skip := range result.Skipped {
			fmt.Fprintln(os.Stderr, skip)
		}
		if err := enc.Encode(result.Readings); err != nil {
			return err
		}
	}
}
