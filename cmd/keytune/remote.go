package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-keytune/client"
)

func (a *app) remoteCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Analyse or retune files through a running keytune server",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:5000", "keytune server URL")

	newClient := func() (*client.Client, error) { return client.New(serverURL) }

	analyze := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Upload a file and print the detected key and tuning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := c.Analyze(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	var to, output string
	retune := &cobra.Command{
		Use:   "retune FILE --to KEY",
		Short: "Upload a file, retune it on the server and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := c.Analyze(ctx, args[0], data)
			if err != nil {
				return err
			}
			wav, shift, err := c.KeySwitch(ctx, res.Session, to)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, wav, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%+.1f cents): shifted %+.3f semitones, wrote %s\n",
				res.Key, res.TuningOffset, shift, output)
			return nil
		},
	}
	retune.Flags().StringVar(&to, "to", "", "target key, e.g. C or f#")
	retune.Flags().StringVarP(&output, "output", "o", "fixed.wav", "output WAV file")
	_ = retune.MarkFlagRequired("to")

	cmd.AddCommand(analyze, retune)
	return cmd
}
