package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/luvnest/internal/logging"
	"github.com/localnerve/luvnest/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var noAuthz bool
	flag.BoolVar(&noAuthz, "no-authz", false, "start the database only")
	flag.Parse()

	usage := `
Run MariaDB and Authorizer containers for local development with the
environment variables from the .env file.

Usage:

devstack [-h] [-no-authz] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  devstack -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	log := logging.New("info", "development")

	if envFilename != "" {
		log.Info().Str("file", envFilename).Msg("Loading environment variables")
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatal().Err(err).Msg("Failed to load environment variables")
		}
	}
	if !testutil.ContainersEnabled() {
		log.Fatal().Msg("DB_IMAGE is required")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	containers, err := testutil.StartContainers(nil, !noAuthz)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start containers")
	}
	log.Info().
		Str("db_host", containers.DBHost).
		Str("db_port", containers.DBPort).
		Str("authz_url", containers.AuthzURL).
		Msg("Containers running, interrupt to stop")

	sig := <-sigs
	log.Info().Str("signal", sig.String()).Msg("Terminating containers")
	containers.Terminate(nil)
}
