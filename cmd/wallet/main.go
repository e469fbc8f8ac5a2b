package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error

	switch os.Args[1] {
	case "mint":
		err = runMint(os.Args[2:])
	case "send":
		err = runSend(os.Args[2:])
	case "receive":
		err = runReceive(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "address":
		err = runAddress(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// usage prints the command summary.
func usage() {
	fmt.Fprintln(os.Stderr, `usage: wallet <command> [flags]

commands:
  mint      create a new token and prove its genesis
  send      transfer a token (offline package or immediate submission)
  receive   resolve a transfer package and take ownership
  verify    check a package or stored token end to end
  show      list stored tokens and their status
  address   print this wallet's receive address

run 'wallet <command> -h' for command flags`)
}

// exitCode maps failures to the process exit code: 2 for I/O errors,
// 1 for validation and protocol failures.
func exitCode(err error) int {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return 2
	}

	return 1
}
