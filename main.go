// Command cldb builds the camera and lens spec database.
package main

import (
	"os"

	"github.com/sgryjp/cldb/cmd"
	"github.com/sgryjp/cldb/cmd/common"
)

func main() {
	if err := cmd.Execute(); err != nil {
		common.RenderError(os.Stderr, err)
		os.Exit(1)
	}
}
