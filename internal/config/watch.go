package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Watch re-reads the config file on change and hands every valid new
// configuration to apply. Invalid edits are logged and ignored. Only
// settings that can change at runtime should be consumed by apply.
func Watch(v *viper.Viper, apply func(*Config)) {
	if v.ConfigFileUsed() == "" {
		logrus.Debug("No config file in use - not watching for changes")
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logrus.WithField("file", e.Name).Info("Config file change detected - reloading")
		c, err := Decode(v)
		if err != nil {
			logrus.WithError(err).Error("Error reloading configuration - ignoring")
			return
		}
		logrus.Info("Applying reloaded config live")
		apply(c)
	})
	v.WatchConfig()
}
