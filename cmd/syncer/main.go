package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli"
)

var version = "dev"

func main() {
	app := cli.App{
		Name:      "bbb-schedule-sync",
		Usage:     "Sync scheduled BigBlueButton meetings from Moodle to the load balancer.",
		Version:   version,
		UsageText: "bbb-schedule-sync <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "run",
				Usage:  "run a single sync and exit",
				Action: runOnce,
			},
			{
				Name:   "serve",
				Usage:  "run the sync on its cron schedule and serve the admin API",
				Action: serve,
			},
			{
				Name:   "preview",
				Usage:  "print the snapshot that would be sent, without sending it",
				Action: preview,
			},
			{
				Name:   "token",
				Usage:  "mint an admin API token",
				Action: token,
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "subject, s",
						Value: "admin",
						Usage: "token subject recorded in the request log",
					},
					cli.DurationFlag{
						Name:  "ttl",
						Value: 24 * time.Hour,
						Usage: "token lifetime",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
