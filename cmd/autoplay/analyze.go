package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludyw21/autoplay-go/internal/notes"
)

var (
	analyzeJSON      bool
	analyzeTranspose int
	analyzeOctave    int
)

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full analysis as JSON")
	analyzeCmd.Flags().IntVar(&analyzeTranspose, "transpose", 0, "semitone shift applied to every track before analysis")
	analyzeCmd.Flags().IntVar(&analyzeOctave, "octave", 0, "octave shift applied to every track before analysis")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.mid>",
	Short: "Report each track's note range against the playable window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := loadSettings()
		store := newStore(settings)
		if err := store.Load(args[0]); err != nil {
			return err
		}
		snap := store.Snapshot()
		for _, tr := range snap.Tracks {
			if analyzeTranspose != 0 {
				if err := store.SetTranspose(tr.ID, analyzeTranspose); err != nil {
					return err
				}
			}
			if analyzeOctave != 0 {
				if err := store.SetOctave(tr.ID, analyzeOctave); err != nil {
					return err
				}
			}
		}
		snap = store.Snapshot()

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap.Tracks)
		}

		fmt.Printf("window: %s .. %s\n", notes.Name(snap.Window.Min), notes.Name(snap.Window.Max))
		for _, tr := range snap.Tracks {
			a := tr.Analysis
			fmt.Printf("track %d %q: %d notes", tr.ID, tr.Name, tr.NoteCount)
			if !a.HasNotes {
				fmt.Println(" (empty)")
				continue
			}
			fmt.Printf(", range %s..%s", a.MinName, a.MaxName)
			if a.MaxOverLimit && a.MaxSuggestion != nil {
				fmt.Printf(", %d above window (try transpose %d octave %d)",
					a.UpperOverLimit, a.MaxSuggestion.Transpose, a.MaxSuggestion.Octave)
			}
			if a.MinOverLimit && a.MinSuggestion != nil {
				fmt.Printf(", %d below window (try transpose %d octave %d)",
					a.LowerOverLimit, a.MinSuggestion.Transpose, a.MinSuggestion.Octave)
			}
			fmt.Println()
		}
		return nil
	},
}
