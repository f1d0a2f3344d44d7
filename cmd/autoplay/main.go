// Command autoplay plays MIDI files through simulated keyboard or mouse
// input, with range analysis and transpose suggestions to keep songs inside
// a constrained playable window.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	autoplay "github.com/ludyw21/autoplay-go"
	"github.com/ludyw21/autoplay-go/internal/config"
	"github.com/ludyw21/autoplay-go/internal/keysim"
	"github.com/ludyw21/autoplay-go/internal/midifile"
	"github.com/ludyw21/autoplay-go/internal/mousesim"
	"github.com/ludyw21/autoplay-go/internal/notes"
	"github.com/ludyw21/autoplay-go/internal/song"
)

var (
	configPath string
	debug      bool

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "autoplay",
	Short: "MIDI auto-player driving simulated keyboard and mouse input",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "autoplay.yaml", "settings file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func loadSettings() config.Settings {
	settings, err := config.Load(configPath)
	if err != nil {
		logger.Warn("settings load failed, using defaults", "path", configPath, "err", err)
		return config.Default()
	}
	return settings
}

func newStore(settings config.Settings) *song.Store {
	parse := func(path string, win notes.Window) (*midifile.Song, error) {
		return midifile.Parse(path, midifile.Options{
			BlackKeyMode:   settings.BlackKeyMode,
			TrimLongNotes:  settings.TrimLongNotes,
			MaxNoteSeconds: settings.MaxNoteSeconds,
		})
	}
	return song.NewStore(parse, settings.Window)
}

// newDispatcher builds the configured input backend. The injection layer
// is the logging one; OS-level injectors plug in through the same
// interfaces.
func newDispatcher(settings config.Settings, useMouse bool) autoplay.Dispatcher {
	if useMouse {
		bindings := make(map[int]autoplay.MouseCoordinate, len(settings.MouseBindings))
		for note, pt := range settings.MouseBindings {
			bindings[note] = autoplay.MouseCoordinate{X: pt.X, Y: pt.Y}
		}
		return &autoplay.MouseDispatcher{
			Bindings: bindings,
			Sim:      mousesim.New(&mousesim.LogPointer{Log: logger}, logger),
		}
	}
	return &autoplay.KeyDispatcher{
		Bindings: settings.KeyBindings,
		Sim:      keysim.New(keysim.LogInjector{Log: logger}, logger),
	}
}
