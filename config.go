package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
)

// AppConfig holds all server configuration.
// Priority (lowest → highest): defaults < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Server
	DB   string `json:"db"`   // database connection string
	Dev  bool   `json:"dev"`  // dev mode: verbose logging
	Addr string `json:"addr"` // HTTP listen address

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogDB        bool   `json:"log_db"`
	LogWS        bool   `json:"log_ws"`
	LogDebug     bool   `json:"log_debug"`

	// Game pacing and roster
	MinPlayers     int `json:"min_players"`
	MaxPlayers     int `json:"max_players"`
	LobbySeconds   int `json:"lobby_seconds"`
	NightSeconds   int `json:"night_seconds"`
	DaySeconds     int `json:"day_seconds"`
	VoteSeconds    int `json:"vote_seconds"`
	RevengeSeconds int `json:"revenge_seconds"`

	// Filler players
	FillerEnabled bool   `json:"filler_enabled"`
	FillerNames   string `json:"filler_names"` // comma-separated name pool
	AllowSelfVote bool   `json:"allow_self_vote"`

	// AI Storyteller
	StorytellerProvider    string `json:"storyteller_provider"`    // ollama | openai | claude | gemini | openai-compatible
	StorytellerModel       string `json:"storyteller_model"`       // model name
	StorytellerOllamaURL   string `json:"storyteller_ollama_url"`  // Ollama server URL
	StorytellerURL         string `json:"storyteller_url"`         // base URL for openai-compatible
	StorytellerAPIKey      string `json:"storyteller_api_key"`     // API key for openai-compatible
	StorytellerTemperature string `json:"storyteller_temperature"` // float 0-1 as string
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir: cfg.LogOutputDir,
		LogDB:     cfg.LogDB,
		LogWS:     cfg.LogWS,
		Debug:     cfg.LogDebug,
	}
}

func (cfg AppConfig) fillerNamePool() []string {
	var pool []string
	for _, name := range strings.Split(cfg.FillerNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			pool = append(pool, name)
		}
	}
	return pool
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                   "file::memory:?cache=shared",
		Addr:                 ":8080",
		MinPlayers:           5,
		MaxPlayers:           15,
		LobbySeconds:         120,
		NightSeconds:         90,
		DaySeconds:           120,
		VoteSeconds:          60,
		RevengeSeconds:       30,
		FillerEnabled:        true,
		FillerNames:          "Agatha,Bartholomew,Cressida,Dmitri,Esme,Fenwick,Greta,Hubert,Isolde,Jasper",
		StorytellerOllamaURL: "http://localhost:11434",
	}
}

// loadConfig builds a config by layering: defaults → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after flag.Parse.
func loadConfig(configPath string) AppConfig {
	cfg := defaultConfig()

	// Layer 1: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}
	envInt := func(key string) (val int, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Config: invalid %s=%q, ignoring", key, v)
			return 0, false
		}
		return n, true
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_WS"); ok {
		cfg.LogWS = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}
	if v, ok := envInt("MIN_PLAYERS"); ok {
		cfg.MinPlayers = v
	}
	if v, ok := envInt("MAX_PLAYERS"); ok {
		cfg.MaxPlayers = v
	}
	if v, ok := envInt("LOBBY_SECONDS"); ok {
		cfg.LobbySeconds = v
	}
	if v, ok := envInt("NIGHT_SECONDS"); ok {
		cfg.NightSeconds = v
	}
	if v, ok := envInt("DAY_SECONDS"); ok {
		cfg.DaySeconds = v
	}
	if v, ok := envInt("VOTE_SECONDS"); ok {
		cfg.VoteSeconds = v
	}
	if v, ok := envInt("REVENGE_SECONDS"); ok {
		cfg.RevengeSeconds = v
	}
	if v, ok := envBool("FILLER_ENABLED"); ok {
		cfg.FillerEnabled = v
	}
	if v := envStr("FILLER_NAMES"); v != "" {
		cfg.FillerNames = v
	}
	if v, ok := envBool("ALLOW_SELF_VOTE"); ok {
		cfg.AllowSelfVote = v
	}
	if v := envStr("STORYTELLER_PROVIDER"); v != "" {
		cfg.StorytellerProvider = v
	}
	if v := envStr("STORYTELLER_MODEL"); v != "" {
		cfg.StorytellerModel = v
	}
	if v := envStr("STORYTELLER_OLLAMA_URL"); v != "" {
		cfg.StorytellerOllamaURL = v
	}
	if v := envStr("STORYTELLER_URL"); v != "" {
		cfg.StorytellerURL = v
	}
	if v := envStr("STORYTELLER_API_KEY"); v != "" {
		cfg.StorytellerAPIKey = v
	}
	if v := envStr("STORYTELLER_TEMPERATURE"); v != "" {
		cfg.StorytellerTemperature = v
	}

	// Layer 2: JSON config file — only fields present in the file override env vars
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	str := func(key string, dst *string) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	str("db", &cfg.DB)
	boolean("dev", &cfg.Dev)
	str("addr", &cfg.Addr)
	str("log_output_dir", &cfg.LogOutputDir)
	boolean("log_db", &cfg.LogDB)
	boolean("log_ws", &cfg.LogWS)
	boolean("log_debug", &cfg.LogDebug)
	integer("min_players", &cfg.MinPlayers)
	integer("max_players", &cfg.MaxPlayers)
	integer("lobby_seconds", &cfg.LobbySeconds)
	integer("night_seconds", &cfg.NightSeconds)
	integer("day_seconds", &cfg.DaySeconds)
	integer("vote_seconds", &cfg.VoteSeconds)
	integer("revenge_seconds", &cfg.RevengeSeconds)
	boolean("filler_enabled", &cfg.FillerEnabled)
	str("filler_names", &cfg.FillerNames)
	boolean("allow_self_vote", &cfg.AllowSelfVote)
	str("storyteller_provider", &cfg.StorytellerProvider)
	str("storyteller_model", &cfg.StorytellerModel)
	str("storyteller_ollama_url", &cfg.StorytellerOllamaURL)
	str("storyteller_url", &cfg.StorytellerURL)
	str("storyteller_api_key", &cfg.StorytellerAPIKey)
	str("storyteller_temperature", &cfg.StorytellerTemperature)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	configPath             *string
	db                     *string
	dev                    *bool
	addr                   *string
	logOutputDir           *string
	logDB                  *bool
	logWS                  *bool
	logDebug               *bool
	minPlayers             *int
	maxPlayers             *int
	lobbySeconds           *int
	nightSeconds           *int
	daySeconds             *int
	voteSeconds            *int
	revengeSeconds         *int
	fillerEnabled          *bool
	fillerNames            *string
	allowSelfVote          *bool
	storytellerProvider    *string
	storytellerModel       *string
	storytellerOllamaURL   *string
	storytellerURL         *string
	storytellerAPIKey      *string
	storytellerTemperature *string
}

// registerFlags registers all CLI flags and returns pointers to their values.
// Call flag.Parse() after this, then applyTo to layer them over the loaded config.
func registerFlags() flagValues {
	return flagValues{
		configPath:             flag.String("config", "config.json", "path to JSON config file"),
		db:                     flag.String("db", "", "database connection string"),
		dev:                    flag.Bool("dev", false, "enable development mode (verbose logging)"),
		addr:                   flag.String("addr", "", "HTTP listen address (e.g. :8080)"),
		logOutputDir:           flag.String("log-output-dir", "", "directory for extended log files"),
		logDB:                  flag.Bool("log-db", false, "log database writes"),
		logWS:                  flag.Bool("log-ws", false, "log WebSocket messages"),
		logDebug:               flag.Bool("log-debug", false, "enable debug logging"),
		minPlayers:             flag.Int("min-players", 0, "minimum roster size"),
		maxPlayers:             flag.Int("max-players", 0, "maximum roster size"),
		lobbySeconds:           flag.Int("lobby-seconds", 0, "lobby wait before the game starts"),
		nightSeconds:           flag.Int("night-seconds", 0, "night phase deadline"),
		daySeconds:             flag.Int("day-seconds", 0, "day discussion length"),
		voteSeconds:            flag.Int("vote-seconds", 0, "vote phase deadline"),
		revengeSeconds:         flag.Int("revenge-seconds", 0, "revenge shot deadline"),
		fillerEnabled:          flag.Bool("filler-enabled", false, "pad short lobbies with filler players"),
		fillerNames:            flag.String("filler-names", "", "comma-separated filler name pool"),
		allowSelfVote:          flag.Bool("allow-self-vote", false, "allow voting for yourself"),
		storytellerProvider:    flag.String("storyteller-provider", "", "AI storyteller provider (ollama|openai|claude|gemini|openai-compatible)"),
		storytellerModel:       flag.String("storyteller-model", "", "AI storyteller model name"),
		storytellerOllamaURL:   flag.String("storyteller-ollama-url", "", "Ollama server URL"),
		storytellerURL:         flag.String("storyteller-url", "", "base URL for openai-compatible provider"),
		storytellerAPIKey:      flag.String("storyteller-api-key", "", "API key for storyteller provider"),
		storytellerTemperature: flag.String("storyteller-temperature", "", "sampling temperature 0-1"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "addr":
			cfg.Addr = *fv.addr
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-ws":
			cfg.LogWS = *fv.logWS
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "min-players":
			cfg.MinPlayers = *fv.minPlayers
		case "max-players":
			cfg.MaxPlayers = *fv.maxPlayers
		case "lobby-seconds":
			cfg.LobbySeconds = *fv.lobbySeconds
		case "night-seconds":
			cfg.NightSeconds = *fv.nightSeconds
		case "day-seconds":
			cfg.DaySeconds = *fv.daySeconds
		case "vote-seconds":
			cfg.VoteSeconds = *fv.voteSeconds
		case "revenge-seconds":
			cfg.RevengeSeconds = *fv.revengeSeconds
		case "filler-enabled":
			cfg.FillerEnabled = *fv.fillerEnabled
		case "filler-names":
			cfg.FillerNames = *fv.fillerNames
		case "allow-self-vote":
			cfg.AllowSelfVote = *fv.allowSelfVote
		case "storyteller-provider":
			cfg.StorytellerProvider = *fv.storytellerProvider
		case "storyteller-model":
			cfg.StorytellerModel = *fv.storytellerModel
		case "storyteller-ollama-url":
			cfg.StorytellerOllamaURL = *fv.storytellerOllamaURL
		case "storyteller-url":
			cfg.StorytellerURL = *fv.storytellerURL
		case "storyteller-api-key":
			cfg.StorytellerAPIKey = *fv.storytellerAPIKey
		case "storyteller-temperature":
			cfg.StorytellerTemperature = *fv.storytellerTemperature
		}
	})
}
