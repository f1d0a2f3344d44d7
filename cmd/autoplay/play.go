package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	autoplay "github.com/ludyw21/autoplay-go"
	"github.com/ludyw21/autoplay-go/internal/song"
)

var (
	playMouse     bool
	playTranspose int
	playOctave    int
	playAutoFix   bool
)

func init() {
	playCmd.Flags().BoolVar(&playMouse, "mouse", false, "drive mouse clicks instead of key presses")
	playCmd.Flags().IntVar(&playTranspose, "transpose", 0, "semitone shift applied to every track")
	playCmd.Flags().IntVar(&playOctave, "octave", 0, "octave shift applied to every track")
	playCmd.Flags().BoolVar(&playAutoFix, "auto-fix", false, "apply range suggestions before playing")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <file.mid>",
	Short: "Play a MIDI file through simulated input after a countdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := loadSettings()
		store := newStore(settings)
		player := autoplay.NewPlayer(store,
			autoplay.WithDispatcher(newDispatcher(settings, playMouse)),
			autoplay.WithCountdownTicks(settings.CountdownTicks),
			autoplay.WithLogger(logger),
		)

		events := player.Watch()
		if err := player.LoadSong(args[0]); err != nil {
			return err
		}
		if err := applyShifts(store, playTranspose, playOctave, playAutoFix); err != nil {
			return err
		}
		if err := player.StartPlayback(); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		for {
			select {
			case <-sig:
				fmt.Println("\nstopping")
				player.Stop()
				return nil
			case ev := <-events:
				switch ev.Kind {
				case autoplay.EventCountdownTick:
					fmt.Printf("starting in %d...\n", ev.TicksLeft)
				case autoplay.EventStarted:
					fmt.Println("playing")
				case autoplay.EventRemainingTick:
					fmt.Printf("\r%ds remaining ", ev.RemainingSec)
				case autoplay.EventStopped:
					fmt.Println("\ndone")
					return ev.Err
				}
			}
		}
	},
}

// applyShifts applies the global flag shifts to every track, then lets the
// analyzer fix whatever still falls outside the window when requested. The
// high end is fixed first; a track outside both ends gets the max-side
// suggestion, matching what a user clicking through the UI would do.
func applyShifts(store *song.Store, transpose, octave int, autoFix bool) error {
	for _, tr := range store.Snapshot().Tracks {
		if transpose != 0 {
			if err := store.SetTranspose(tr.ID, transpose); err != nil {
				return err
			}
		}
		if octave != 0 {
			if err := store.SetOctave(tr.ID, octave); err != nil {
				return err
			}
		}
	}
	if !autoFix {
		return nil
	}
	for _, tr := range store.Snapshot().Tracks {
		a := tr.Analysis
		switch {
		case a.MaxOverLimit && a.MaxSuggestion != nil:
			if err := store.ApplySuggestion(tr.ID, song.ExtremeMax); err != nil {
				return err
			}
		case a.MinOverLimit && a.MinSuggestion != nil:
			if err := store.ApplySuggestion(tr.ID, song.ExtremeMin); err != nil {
				return err
			}
		}
	}
	return nil
}
