package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	autoplay "github.com/ludyw21/autoplay-go"
	"github.com/ludyw21/autoplay-go/internal/hotkey"
	"github.com/ludyw21/autoplay-go/internal/notes"
	"github.com/ludyw21/autoplay-go/internal/song"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the player over a local JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := loadSettings()
		store := newStore(settings)
		player := autoplay.NewPlayer(store,
			autoplay.WithDispatcher(newDispatcher(settings, false)),
			autoplay.WithPreviewer(autoplay.NewAudioPreviewer(logger)),
			autoplay.WithCountdownTicks(settings.CountdownTicks),
			autoplay.WithLeadIn(settings.LeadInSeconds),
			autoplay.WithLogger(logger),
		)

		srv := &apiServer{store: store, player: player}
		srv.hotkeys = hotkey.NewDispatcher(
			time.Duration(settings.Shortcuts.DebounceMillis)*time.Millisecond, logger)
		srv.hotkeys.Bind(settings.Shortcuts.TogglePlayback, srv.togglePlayback)
		srv.hotkeys.Bind(settings.Shortcuts.StopAll, player.Stop)

		router := mux.NewRouter().StrictSlash(true)
		router.HandleFunc("/song", srv.handleLoad).Methods("POST")
		router.HandleFunc("/tracks", srv.handleTracks).Methods("GET")
		router.HandleFunc("/tracks/{id}/transpose", srv.handleTranspose).Methods("PUT")
		router.HandleFunc("/tracks/{id}/octave", srv.handleOctave).Methods("PUT")
		router.HandleFunc("/tracks/{id}/selected", srv.handleSelected).Methods("PUT")
		router.HandleFunc("/tracks/{id}/apply-suggestion", srv.handleApplySuggestion).Methods("POST")
		router.HandleFunc("/window", srv.handleWindow).Methods("PUT")
		router.HandleFunc("/playback", srv.handleStart(player.StartPlayback)).Methods("POST")
		router.HandleFunc("/preview", srv.handleStart(player.StartPreview)).Methods("POST")
		router.HandleFunc("/audio-preview", srv.handleStart(player.StartAudioPreview)).Methods("POST")
		router.HandleFunc("/stop", srv.handleStop).Methods("POST")
		router.HandleFunc("/status", srv.handleStatus).Methods("GET")
		router.HandleFunc("/intents/{name}", srv.handleIntent).Methods("POST")

		handler := cors.Default().Handler(router)
		logger.Info("listening", "addr", serveAddr)
		return http.ListenAndServe(serveAddr, handler)
	},
}

type apiServer struct {
	store   *song.Store
	player  *autoplay.Player
	hotkeys *hotkey.Dispatcher
}

func (s *apiServer) togglePlayback() {
	if s.player.State() == autoplay.StateIdle {
		if err := s.player.StartPlayback(); err != nil {
			logger.Warn("toggle start failed", "err", err)
		}
		return
	}
	s.player.Stop()
}

// writeError maps precondition failures to 409 and everything else to 400;
// the body always carries the message.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, autoplay.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, autoplay.ErrNoSong),
		errors.Is(err, autoplay.ErrNoPlayableNotes),
		errors.Is(err, autoplay.ErrNoBoundNotes),
		errors.Is(err, autoplay.ErrNoPreviewer):
		code = http.StatusConflict
	case errors.Is(err, song.ErrNoTrack):
		code = http.StatusNotFound
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func trackID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

func (s *apiServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err)
		return
	}
	if err := s.player.LoadSong(input.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.store.Snapshot().Tracks)
}

func (s *apiServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Snapshot().Tracks)
}

func (s *apiServer) handleTranspose(w http.ResponseWriter, r *http.Request) {
	s.updateTrack(w, r, s.store.SetTranspose)
}

func (s *apiServer) handleOctave(w http.ResponseWriter, r *http.Request) {
	s.updateTrack(w, r, s.store.SetOctave)
}

func (s *apiServer) handleSelected(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var input struct {
		Selected bool `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SetSelected(id, input.Selected); err != nil {
		writeError(w, err)
		return
	}
	s.respondTrack(w, id)
}

func (s *apiServer) updateTrack(w http.ResponseWriter, r *http.Request, apply func(id, value int) error) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var input struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err)
		return
	}
	if err := apply(id, input.Value); err != nil {
		writeError(w, err)
		return
	}
	s.respondTrack(w, id)
}

func (s *apiServer) respondTrack(w http.ResponseWriter, id int) {
	tr, ok := s.store.Snapshot().TrackByID(id)
	if !ok {
		writeError(w, song.ErrNoTrack)
		return
	}
	writeJSON(w, tr)
}

func (s *apiServer) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var input struct {
		Extreme string `json:"extreme"` // "max" or "min"
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err)
		return
	}
	extreme := song.ExtremeMax
	if input.Extreme == "min" {
		extreme = song.ExtremeMin
	}
	if err := s.store.ApplySuggestion(id, extreme); err != nil {
		writeError(w, err)
		return
	}
	s.respondTrack(w, id)
}

func (s *apiServer) handleWindow(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Min int `json:"min"`
		Max int `json:"max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err)
		return
	}
	if err := s.player.SetWindow(notes.Window{Min: input.Min, Max: input.Max}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.store.Snapshot().Tracks)
}

func (s *apiServer) handleStart(start func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := start(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, s.player.Status())
	}
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	s.player.Stop()
	writeJSON(w, s.player.Status())
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.player.Status())
}

func (s *apiServer) handleIntent(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.hotkeys.Trigger(name) {
		http.Error(w, "unknown intent", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
