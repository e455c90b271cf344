package config

import (
	"flag"
	"os"

	"github.com/avolkov/lanferry/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   default coordinator base URL
//	-s string   path of the local state database
//	-n string   display name presented during pairing
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DefaultCoordinatorURL, "a", cfg.DefaultCoordinatorURL, "default coordinator base URL")
	fs.StringVar(&cfg.StateDBPath, "s", cfg.StateDBPath, "path of the local state database")
	fs.StringVar(&cfg.DisplayName, "n", cfg.DisplayName, "display name presented during pairing")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
