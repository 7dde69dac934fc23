package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sqlbadlands/internal/app"
)

const (
	configFileName = "sqlbadlands"
	configFileType = "yaml"

	keyAddr           = "addr"
	keyIsolation      = "isolation"
	keyQueryTimeout   = "query_timeout"
	keyDataDir        = "data_dir"
	keyLogPath        = "log_path"
	keyLogFormat      = "log_format"
	keyCurriculumPath = "curriculum_path"
	keyRecordAttempts = "record_attempts"
	keyStyle          = "style"
	keyDebug          = "debug"

	flagAddr           = "addr"
	flagDataDir        = "data-dir"
	flagIsolation      = "isolation"
	flagQueryTimeout   = "query-timeout"
	flagLogPath        = "log-path"
	flagLogFormat      = "log-format"
	flagCurriculum     = "curriculum"
	flagRecordAttempts = "record-attempts"
	flagStyle          = "style"
	flagDebug          = "debug"
)

var flagKeys = map[string]string{
	flagAddr:           keyAddr,
	flagDataDir:        keyDataDir,
	flagIsolation:      keyIsolation,
	flagQueryTimeout:   keyQueryTimeout,
	flagLogPath:        keyLogPath,
	flagLogFormat:      keyLogFormat,
	flagCurriculum:     keyCurriculumPath,
	flagRecordAttempts: keyRecordAttempts,
	flagStyle:          keyStyle,
	flagDebug:          keyDebug,
}

// loadConfig resolves configuration from defaults, the config file,
// SQLBADLANDS_* variables and finally flags set on the command line.
// A missing config file is not an error unless one was named explicitly.
func loadConfig(configFile string, flags *pflag.FlagSet) (app.Config, error) {
	def := app.DefaultConfig()
	v := viper.New()
	v.SetDefault(keyAddr, def.Addr)
	v.SetDefault(keyIsolation, def.Isolation)
	v.SetDefault(keyQueryTimeout, def.QueryTimeout)
	v.SetDefault(keyDataDir, def.DataDir)
	v.SetDefault(keyLogPath, def.LogPath)
	v.SetDefault(keyLogFormat, def.LogFormat)
	v.SetDefault(keyCurriculumPath, def.CurriculumPath)
	v.SetDefault(keyRecordAttempts, def.RecordAttempts)
	v.SetDefault(keyStyle, def.Style)
	v.SetDefault(keyDebug, def.Debug)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "sqlbadlands"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return app.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg app.Config
	for _, key := range flagKeys {
		applyKey(&cfg, v, key)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return app.Config{}, err
	}

	var bindErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = err
			return
		}
		applyKey(&cfg, v, key)
	})
	if bindErr != nil {
		return app.Config{}, bindErr
	}
	return cfg, nil
}

func applyKey(cfg *app.Config, v *viper.Viper, key string) {
	switch key {
	case keyAddr:
		cfg.Addr = v.GetString(key)
	case keyIsolation:
		cfg.Isolation = v.GetString(key)
	case keyQueryTimeout:
		cfg.QueryTimeout = v.GetDuration(key)
	case keyDataDir:
		cfg.DataDir = v.GetString(key)
	case keyLogPath:
		cfg.LogPath = v.GetString(key)
	case keyLogFormat:
		cfg.LogFormat = v.GetString(key)
	case keyCurriculumPath:
		cfg.CurriculumPath = v.GetString(key)
	case keyRecordAttempts:
		cfg.RecordAttempts = v.GetBool(key)
	case keyStyle:
		cfg.Style = v.GetString(key)
	case keyDebug:
		cfg.Debug = v.GetBool(key)
	}
}
