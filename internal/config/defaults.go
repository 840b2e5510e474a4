package config

const (
	defaultStateDir              = "~/.local/share/spyglass"
	defaultLogDir                = "~/.local/share/spyglass/logs"
	defaultStorePath             = "~/.local/share/spyglass/spyglass.db"
	defaultAPIBind               = "127.0.0.1:7601"
	defaultStoreDriver           = "sqlite"
	defaultBusyTimeoutMS         = 5000
	defaultSubstrate             = "local"
	defaultConcurrency           = 2
	defaultPollInterval          = 5
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultRedisAddr             = "127.0.0.1:6379"
	defaultQuickTimeout          = 15
	defaultDeepTimeout           = 120
	defaultSectionTimeout        = 20
	defaultMaxConcurrentSections = 4
	defaultMaxLinkedProfiles     = 3
	defaultMaxPosts              = 50
	defaultAnalysisBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel         = "google/gemini-3-flash-preview"
	defaultAnalysisTitle         = "Spyglass Profile Analysis"
	defaultAnalysisTimeout       = 60
	defaultMaxSummaryPosts       = 25
	defaultPlatformUserAgent     = "Spyglass/dev"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults. The default
// platform set runs in offline mode so a fresh install works without a
// scrape gateway.
func Default() Config {
	return Config{
		Daemon: Daemon{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Store: Store{
			Driver:        defaultStoreDriver,
			Path:          defaultStorePath,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Queue: Queue{
			Substrate:         defaultSubstrate,
			Concurrency:       defaultConcurrency,
			PollInterval:      defaultPollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
			RedisAddr:         defaultRedisAddr,
		},
		Collection: Collection{
			QuickTimeout:          defaultQuickTimeout,
			DeepTimeout:           defaultDeepTimeout,
			SectionTimeout:        defaultSectionTimeout,
			MaxConcurrentSections: defaultMaxConcurrentSections,
			MaxLinkedProfiles:     defaultMaxLinkedProfiles,
			MaxPosts:              defaultMaxPosts,
		},
		Analysis: Analysis{
			BaseURL:         defaultAnalysisBaseURL,
			Model:           defaultAnalysisModel,
			Title:           defaultAnalysisTitle,
			TimeoutSeconds:  defaultAnalysisTimeout,
			MaxSummaryPosts: defaultMaxSummaryPosts,
		},
		Platforms: map[string]Platform{
			"twitter":   {Mode: "offline"},
			"instagram": {Mode: "offline"},
			"tiktok":    {Mode: "offline"},
			"youtube":   {Mode: "offline"},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			TaskCompleted:  true,
			TaskFailed:     true,
			DaemonEvents:   false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
