package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"blind-test-pipeline/audioasm"
	"blind-test-pipeline/catalog"
	"blind-test-pipeline/config"
	"blind-test-pipeline/types"
	"blind-test-pipeline/upload"
	"blind-test-pipeline/video"
)

func main() {
	// Load .env (local dev only)
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	numTracks := flag.Int("tracks", 0, "Number of tracks in the blind test")
	snippetSec := flag.Float64("snippet", 0, "Snippet duration in seconds")
	pauseSec := flag.Float64("pause", -1, "Pause duration in seconds")
	introSec := flag.Float64("intro", -1, "Intro duration in seconds")
	outroSec := flag.Float64("outro", -1, "Outro duration in seconds")
	answerSec := flag.Float64("answer", 0, "Answer reveal duration in seconds")
	title := flag.String("title", "", "Video title")
	description := flag.String("description", "", "Video description")
	doUpload := flag.Bool("upload", false, "Upload the rendered video to YouTube")
	outDir := flag.String("out", "", "Output directory")
	seed := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the YAML config only when set explicitly.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tracks":
			cfg.Run.NumTracks = *numTracks
		case "snippet":
			cfg.Run.SnippetSec = *snippetSec
		case "pause":
			cfg.Run.PauseSec = *pauseSec
		case "intro":
			cfg.Run.IntroSec = *introSec
		case "outro":
			cfg.Run.OutroSec = *outroSec
		case "answer":
			cfg.Run.AnswerSec = *answerSec
		case "title":
			cfg.Run.Title = *title
		case "description":
			cfg.Run.Description = *description
		case "upload":
			cfg.Run.Upload = *doUpload
		case "out":
			cfg.Paths.OutputDir = *outDir
		}
	})

	// Fail fast before any network or rendering work.
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir %s: %v", cfg.Paths.OutputDir, err)
	}

	runID := uuid.NewString()[:8]
	timestamp := time.Now().Format("20060102_150405")

	tmpDir, err := os.MkdirTemp("", "blindtest-"+runID+"-")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	log.Printf("🎵 Blind Test Pipeline starting — Run ID: %s", runID)
	log.Printf("📁 Output dir: %s", cfg.Paths.OutputDir)

	ctx := context.Background()
	state := &types.RunState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}

	// Save state on exit. Artifacts produced before a failure stay on disk
	// for inspection; the temp dir never does.
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveJSON(filepath.Join(cfg.Paths.OutputDir, "pipeline_state.json"), state)
		if state.Error != "" {
			log.Printf("❌ Pipeline failed: %s", state.Error)
			os.RemoveAll(tmpDir)
			os.Exit(1)
		}
	}()

	// ─────────────────────────────────────────────
	// STAGE 1: Catalog
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Catalog ━━━")
	client := catalog.NewClient(cfg.Catalog, rng)
	tracks, err := client.FetchRandomTracks(ctx, cfg.Run.NumTracks)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 1 Catalog: %v", err)
		return
	}
	state.Tracks = tracks
	for i, tr := range tracks {
		log.Printf("  %d. %s (%s)", i+1, tr.Label(), tr.Genre)
	}

	// ─────────────────────────────────────────────
	// STAGE 2: Audio Assembly
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Audio Assembly ━━━")
	asm := audioasm.NewAssembler(cfg, client, tmpDir, rng)
	program, err := asm.Build(ctx, tracks)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 2 Audio: %v", err)
		return
	}

	audioPath := filepath.Join(cfg.Paths.OutputDir, fmt.Sprintf("blind_test_audio_%s.wav", timestamp))
	if err := audioasm.WriteWAV(audioPath, program.PCM, cfg.Audio.SampleRate, cfg.Audio.Channels); err != nil {
		state.Error = fmt.Sprintf("Stage 2 Audio: %v", err)
		return
	}
	state.AudioFile = audioPath
	log.Printf("💾 Audio saved: %s (%.1fs)", audioPath, program.Timeline.TotalDuration().Seconds())

	// ─────────────────────────────────────────────
	// STAGE 3: Video Render
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Video Render ━━━")
	renderer := video.NewRenderer(cfg, client, tmpDir)
	videoPath := filepath.Join(cfg.Paths.OutputDir, fmt.Sprintf("blind_test_video_%s.mp4", timestamp))
	if err := renderer.Render(ctx, audioPath, program.PCM, program.Timeline, tracks, videoPath); err != nil {
		state.Error = fmt.Sprintf("Stage 3 Render: %v", err)
		return
	}
	state.VideoFile = videoPath
	log.Printf("📹 Video saved: %s", videoPath)

	// ─────────────────────────────────────────────
	// STAGE 4: Upload (optional)
	// ─────────────────────────────────────────────
	if cfg.Run.Upload {
		log.Println("\n━━━ STAGE 4: YouTube Upload ━━━")
		uploader := upload.New(cfg.Upload)
		videoID, err := uploader.Upload(ctx, videoPath, cfg.Run.Title, cfg.Run.Description)
		if err != nil {
			state.Error = fmt.Sprintf("Stage 4 Upload: %v", err)
			return
		}
		state.YouTubeID = videoID
		state.YouTubeURL = fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	}

	// ─────────────────────────────────────────────
	// Summary
	// ─────────────────────────────────────────────
	log.Println("\n🎉 Done! Blind test created:")
	log.Printf("   🔊 Audio: %s", state.AudioFile)
	log.Printf("   📹 Video: %s", state.VideoFile)
	if state.YouTubeURL != "" {
		log.Printf("   🌐 YouTube: %s", state.YouTubeURL)
	}
	log.Println("📋 Tracks in the blind test:")
	for i, tr := range tracks {
		log.Printf("   %d. %s", i+1, tr.Label())
	}
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
