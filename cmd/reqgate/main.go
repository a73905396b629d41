// Command reqgate runs the requirement quality gate as a CLI or HTTP
// service.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		fatal(err)
		os.Exit(1)
	}
}
