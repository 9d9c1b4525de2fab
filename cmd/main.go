package main

import (
	"os"

	"sp-service/configs"
	"sp-service/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		conf *configs.Config
		log  *logrus.Logger
	)

	root := &cobra.Command{
		Use:           "sp-service",
		Short:         "Expose stored procedures over HTTP as JSON or XML",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var warnings []string
			conf, warnings = configs.LoadConfig()
			log = logger.NewLogger(conf.LogLevel, conf.LogFormat)
			for _, w := range warnings {
				log.Warn(w)
			}
		},
	}

	root.AddCommand(
		newServeCmd(func() (*configs.Config, *logrus.Logger) { return conf, log }),
		newCallCmd(func() (*configs.Config, *logrus.Logger) { return conf, log }),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("sp-service failed")
		os.Exit(1)
	}
}
