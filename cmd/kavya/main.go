// Command kavya runs Kavya scripts, starts an interactive REPL, or serves
// the Kavya language server.
package main

import "os"

func main() {
	c := &cli{
		inStream:  os.Stdin,
		outStream: os.Stdout,
		errStream: os.Stderr,
	}
	os.Exit(c.run(os.Args[1:]))
}
