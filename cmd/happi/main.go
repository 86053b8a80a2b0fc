// Command happi manages a registry of device metadata records.
package main

import (
	"os"

	"github.com/mesh-intelligence/happi/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
