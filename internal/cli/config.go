package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roach88/gonogo/internal/rig"
)

const envPrefix = "GONOGO"

// dotEnvFile is read from the working directory on every invocation.
var dotEnvFile = ".env"

// loadDotEnv exports GONOGO_* entries of a .env file that are not already
// set in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read .env file %s: %w", path, err)
	}

	env, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", path, err)
	}
	for key, value := range env {
		if !strings.HasPrefix(key, envPrefix+"_") {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// readConfig layers GONOGO_* environment variables and the config file under
// the bound flags. An explicit --config must exist; the implicit
// ./gonogo.yaml is optional.
func readConfig(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	v.SetConfigName("gonogo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// newLogger builds the CLI logger: charmbracelet/log for text output and a
// slog JSON handler for json output. An explicit level wins over --verbose.
func newLogger(w io.Writer, format, level string, verbose bool) (*slog.Logger, error) {
	lvl := slog.LevelInfo
	switch {
	case level != "":
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%q: %w", level, err)
		}
	case verbose:
		lvl = slog.LevelDebug
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Prefix:          "gonogo",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	return slog.New(handler), nil
}

// loadProfile returns the --rig profile, or the reference rig.
func loadProfile(opts *RootOptions) (*rig.Profile, error) {
	if opts.Rig == "" {
		p := rig.Default()
		return &p, nil
	}
	return rig.Load(opts.Rig)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// logger returns the configured logger, or a discarding one when a command
// runs without the root (unit tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return discardLogger()
}
