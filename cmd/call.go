package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"sp-service/configs"
	"sp-service/internal/procedure"
	"sp-service/internal/resultset"
	"sp-service/pkg/db"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newCallCmd(setup setupFunc) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "call <procedure> [parameter]",
		Short: "Invoke a stored procedure once and print its result sets",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, log := setup()
			if err := conf.Validate(); err != nil {
				return err
			}
			if err := conf.CheckNativeLibs(); err != nil {
				return err
			}
			dialer, err := db.NewSQLDialer(conf.DbConfig)
			if err != nil {
				return err
			}

			var param string
			if len(args) == 2 {
				param = args[1]
			}
			return runCall(cmd.Context(), conf, log, dialer, cmd.OutOrStdout(), args[0], param, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or xml")
	return cmd
}

func runCall(ctx context.Context, conf *configs.Config, log logrus.FieldLogger, dialer db.Dialer,
	out io.Writer, name, param, format string) error {
	format = strings.ToLower(format)
	if format != "json" && format != "xml" {
		return fmt.Errorf("unknown format %q, want json or xml", format)
	}

	svc := procedure.NewService(procedure.ServiceDeps{
		Dialer:      dialer,
		Log:         log,
		CallTimeout: conf.DbConfig.CallTimeout,
	})
	batch, err := svc.Run(ctx, &procedure.InvocationRequest{Procedure: name, Parameter: param})
	if err != nil {
		return err
	}

	var body []byte
	if format == "xml" {
		body, err = resultset.ToXML(batch, time.Now(), conf.XMLEncoding)
	} else {
		body, err = resultset.ToJSON(batch)
	}
	if err != nil {
		return err
	}

	if _, err := out.Write(body); err != nil {
		return err
	}
	_, err = io.WriteString(out, "\n")
	return err
}
