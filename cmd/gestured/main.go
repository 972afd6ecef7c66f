// gestured — демон исполнения действий: принимает распознанные жесты
// и прямые команды по HTTP, диспетчеризует их в драйвер ввода.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "gestured",
		Short: "Action execution engine for gesture control",
		Long:  "gestured turns recognized gestures into input automation: pointer, keyboard, application and macro actions with validation, emergency stop and audit trail.",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gestured version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gestured", version)
		},
	}
}
