package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"Bt1Zen/cache"
	"Bt1Zen/config"
	"Bt1Zen/core/audiocache"
	"Bt1Zen/core/playback"
	"Bt1Zen/core/progress"
	"Bt1Zen/core/voice"
	"Bt1Zen/db"
	"Bt1Zen/logger"
	"Bt1Zen/model"
	"Bt1Zen/repository"
	"Bt1Zen/storage"

	"github.com/gorilla/mux"
)

// defaultUserID identifies the single local user this deployment serves.
const defaultUserID = 1

// Synthesized payloads are WAV, 22050 Hz, 16-bit mono.
const wavBytesPerSecond = 22050 * 2
const wavHeaderBytes = 44

// Start composes the services and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	})

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database schema", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(&model.ListeningSession{}); err != nil {
		logger.Fatal("Failed to migrate models", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	// Generated-audio cache over MySQL metadata and MinIO payloads.
	cacheRepo := repository.NewMySQLAudioCacheRepository()
	objects := storage.NewAudioObjectStore(storage.GetMinioClient(), cfg.MinioBucket)
	audioCache := audiocache.NewAudioCache(audiocache.NewMySQLMinioStore(cacheRepo, objects))

	// The playback session drives headless clock players; actual sound
	// rendering happens on the client device.
	factory := func(track model.AudioTrack) (playback.Player, error) {
		seconds := trackDurationSeconds(audioCache, track.URL)
		if seconds == 0 && track.Duration > 0 {
			seconds = float64(track.Duration) / 1000
		}
		return playback.NewClockPlayer(seconds), nil
	}
	session := playback.NewSession(factory, playback.Options{
		PollInterval: cfg.PollInterval,
		SettleDelay:  cfg.SettleDelay,
	})
	defer session.Cleanup()

	// Progress: Redis aggregate, GORM listening log, fed by a tracker
	// riding the session's state stream.
	progressSvc := progress.NewService(
		cache.NewProgressCache(nil),
		repository.NewGormListeningLogRepository(),
		defaultUserID,
	)
	tracker := progress.NewTracker(progressSvc)
	session.Subscribe(func(state model.PlaybackState) {
		tracker.Observe(context.Background(), state, session.CurrentTrack())
	})

	synthesizer := voice.NewEspeakSynthesizer(cfg.EspeakPath)
	generator := voice.NewGenerator(audioCache, synthesizer, cfg.SynthesisTimeout)

	apiHandler := NewAPIHandler(session, audioCache, generator, synthesizer, progressSvc, cfg)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Playback session endpoints.
	router.HandleFunc("/api/player/load", apiHandler.LoadTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/play", apiHandler.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", apiHandler.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/stop", apiHandler.StopHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", apiHandler.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/speed", apiHandler.SpeedHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/skip", apiHandler.SkipHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/replay", apiHandler.ReplayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/state", apiHandler.PlayerStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/player", apiHandler.PlayerSocketHandler).Methods(http.MethodGet)

	// Meditation audio generation and voices.
	router.HandleFunc("/api/meditations/{id}/audio", apiHandler.GenerateAudioHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/voices", apiHandler.VoicesHandler).Methods(http.MethodGet)

	// Generated-audio cache management.
	router.HandleFunc("/api/cache/size", apiHandler.CacheSizeHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/clear", apiHandler.CacheClearHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/cache/cleanup", apiHandler.CacheCleanupHandler).Methods(http.MethodPost)

	// Listening progress.
	router.HandleFunc("/api/progress", apiHandler.GetProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/progress/history", apiHandler.ListeningHistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/progress/reset", apiHandler.ResetProgressHandler).Methods(http.MethodPost)

	// Minted generated-audio payloads.
	router.PathPrefix(audiocache.RefPrefix).HandlerFunc(apiHandler.GeneratedStreamHandler).Methods(http.MethodGet, http.MethodHead)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("Server stopped")
}

// corsMiddleware mirrors the permissive CORS policy the mobile webview
// expects.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// trackDurationSeconds derives a duration for a track URL. Minted
// generated-audio references carry a known WAV payload; anything else plays
// with an unknown duration until the client reports one.
func trackDurationSeconds(audioCache *audiocache.AudioCache, url string) float64 {
	if !strings.HasPrefix(url, audiocache.RefPrefix) {
		return 0
	}
	payload, ok := audioCache.Refs().Resolve(url)
	if !ok || len(payload) <= wavHeaderBytes {
		return 0
	}
	return float64(len(payload)-wavHeaderBytes) / wavBytesPerSecond
}
