package config

const (
	defaultLogDir                 = "~/.local/share/subwatch/logs"
	defaultHistoryDB              = "~/.local/share/subwatch/history.db"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultOpenSubtitlesBaseURL   = "https://api.opensubtitles.com/api/v1"
	defaultOpenSubtitlesUserAgent = "subwatch v1"
	defaultOpenSubtitlesLanguage  = "eng"
	defaultThrottleSeconds        = 10
	defaultRequestTimeoutSeconds  = 45
	defaultSchedule               = "@every 1h"
	defaultHistoryRetentionDays   = 90
	defaultConfigPathLiteral      = "~/.config/subwatch/config.toml"
	defaultProjectConfigFileName  = "subwatch.toml"
	defaultDotEnvFileName         = ".env"
	defaultOpenSubtitlesSubFormat = "srt"
	minimumThrottleSeconds        = 1
	minimumRequestTimeoutSeconds  = 5
	maximumRequestTimeoutSeconds  = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Search: Search{},
		OpenSubtitles: OpenSubtitles{
			BaseURL:               defaultOpenSubtitlesBaseURL,
			UserAgent:             defaultOpenSubtitlesUserAgent,
			Language:              defaultOpenSubtitlesLanguage,
			DefaultFormat:         defaultOpenSubtitlesSubFormat,
			ThrottleSeconds:       defaultThrottleSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Workflow: Workflow{
			Schedule:             defaultSchedule,
			HistoryRetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
