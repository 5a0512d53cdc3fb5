// Command gonogo runs go/no-go behavioural trials against a timed-response
// module, interactively or headless, and checks scripted trial scenarios.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/gonogo/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
