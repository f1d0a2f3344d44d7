package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	autoplay "github.com/ludyw21/autoplay-go"
)

var (
	previewAudio bool
	previewOut   string
	previewRate  int
)

func init() {
	previewCmd.Flags().BoolVar(&previewAudio, "audio", false, "synthesize audio locally instead of simulating keys")
	previewCmd.Flags().StringVar(&previewOut, "out", "", "render to a WAV file instead of playing")
	previewCmd.Flags().IntVar(&previewRate, "sample-rate", 48000, "sample rate for --out")
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview <file.mid>",
	Short: "Preview a MIDI file without countdown, ignoring track selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := loadSettings()
		store := newStore(settings)

		if previewOut != "" {
			if err := store.Load(args[0]); err != nil {
				return err
			}
			samples, err := autoplay.RenderPreview(store.Snapshot(), previewRate)
			if err != nil {
				return err
			}
			wav := autoplay.EncodeWAVFloat32LE(samples, previewRate, 2)
			if err := os.WriteFile(previewOut, wav, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d frames)\n", previewOut, len(samples)/2)
			return nil
		}

		opts := []autoplay.Option{
			autoplay.WithDispatcher(newDispatcher(settings, false)),
			autoplay.WithLeadIn(settings.LeadInSeconds),
			autoplay.WithLogger(logger),
		}
		if previewAudio {
			opts = append(opts, autoplay.WithPreviewer(autoplay.NewAudioPreviewer(logger)))
		}
		player := autoplay.NewPlayer(store, opts...)

		events := player.Watch()
		if err := player.LoadSong(args[0]); err != nil {
			return err
		}
		var err error
		if previewAudio {
			err = player.StartAudioPreview()
		} else {
			err = player.StartPreview()
		}
		if err != nil {
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
