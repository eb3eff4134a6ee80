package main

import (
	"os"

	"github.com/NaveenPalisetti/meetingmcp/cmd/meetingmcp"
)

func main() {
	if err := meetingmcp.Execute(); err != nil {
		os.Exit(1)
	}
}
