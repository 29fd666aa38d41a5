package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/handoff/pkg/cli"
)

func main() {
	env := cli.DefaultEnv()
	env.Logger = setupLogger(os.Getenv("HANDOFF_LOG_LEVEL"))

	// Create root command
	rootCmd := cli.NewRootCommandWithEnv(env)

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
