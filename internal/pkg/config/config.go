package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port      int
	Host      string
	StaticDir string
	Env       string
	DB_DSN    string

	ReconnectGraceS     int
	EndedDisplayS       int
	PreNightCountdownS  int
	NightStartAnnounceS int
	DayStartAnnounceS   int
	PostVotePauseS      int
	NightSummaryPauseS  int
	ChatHistoryLimitMax int
}

func Load() *Config {
	return &Config{
		Port:      getEnvInt("PORT", 8080),
		Host:      getEnv("HOST", "0.0.0.0"),
		StaticDir: getEnv("STATIC_DIR", "./web/dist"),
		Env:       getEnv("ENV", "development"),
		DB_DSN:    getEnv("DB_DSN", ""),

		ReconnectGraceS:     getEnvInt("RECONNECT_GRACE_S", 8),
		EndedDisplayS:       getEnvInt("ENDED_DISPLAY_S", 10),
		PreNightCountdownS:  getEnvInt("PRENIGHT_COUNTDOWN_S", 3),
		NightStartAnnounceS: getEnvInt("NIGHT_START_ANNOUNCE_S", 5),
		DayStartAnnounceS:   getEnvInt("DAY_START_ANNOUNCE_S", 5),
		PostVotePauseS:      getEnvInt("POSTVOTE_PAUSE_S", 3),
		NightSummaryPauseS:  getEnvInt("NIGHT_SUMMARY_PAUSE_S", 5),
		ChatHistoryLimitMax: getEnvInt("CHAT_HISTORY_LIMIT_MAX", 500),
	}
}

func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
