// ABOUTME: Entry point for the sendspin-queue command
// ABOUTME: Hands the command line to the cobra application
package main

import (
	"os"

	"github.com/Sendspin/sendspin-queue/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
