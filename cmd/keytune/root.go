package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-keytune/internal/config"
	"github.com/cwbudde/algo-keytune/internal/logging"
	"github.com/cwbudde/algo-keytune/keytune"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"transposition":   "analysis.transposition",
	"engine":          "analysis.engine",
	"chroma":          "analysis.chroma_mode",
	"analysis-rate":   "analysis.sample_rate",
	"channels":        "audio.channels",
	"bind":            "server.bind_address",
	"port":            "server.port",
	"workers":         "server.workers",
	"max-upload":      "server.max_upload",
	"session-backend": "session.backend",
}

type app struct {
	cfgFile string
	cfg     *config.Config
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "keytune",
		Short:             "Detect the key and tuning of audio clips and retune them",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./keytune.yaml or ~/.config/keytune/keytune.yaml)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.analyzeCmd(),
		a.retuneCmd(),
		a.serveCmd(),
		a.remoteCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v := config.NewViper(a.cfgFile)
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}
	if err := config.Read(v); err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Log.Directory, cfg.Log.Colors, cfg.Log.JSON, cfg.Log.Level); err != nil {
		return err
	}
	a.cfg, a.v = cfg, v
	return nil
}

func (a *app) tuner() (*keytune.KeyTuner, error) {
	opts, err := a.cfg.TunerOptions()
	if err != nil {
		return nil, err
	}
	return keytune.New(opts...)
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("transposition", "", "key distance: literal or nearest")
	cmd.Flags().String("engine", "", "pitch shifter: spectral or wsola")
	cmd.Flags().String("chroma", "", "chroma normalisation: cens or stft")
	cmd.Flags().Int("analysis-rate", 0, "resample to this rate before analysis (0 keeps the file's rate)")
	cmd.Flags().String("channels", "", "stereo downmix: mix, left or right")
}
