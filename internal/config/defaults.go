package config

const (
	defaultDataDir           = "~/.local/share/subtide/data"
	defaultTempDir           = "~/.local/share/subtide/temp"
	defaultLogDir            = "~/.local/share/subtide/logs"
	defaultAPIBind           = "127.0.0.1:8765"
	defaultDownloaderBinary  = "yt-dlp"
	defaultFFmpegBinary      = "ffmpeg"
	defaultDownloaderUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultDownloadTimeout   = 600
	defaultWhisperBinary     = "whisper-cli"
	defaultChunkSeconds      = 10
	defaultMinChunkSeconds   = 1.0
	defaultBeamSize          = 7
	defaultTemperature       = 0.1
	defaultConfidenceWarn    = 0.6
	defaultVADSensitivity    = 3
	defaultTranslateBaseURL  = "https://translation.googleapis.com/language/translate/v2"
	defaultTranslateTimeout  = 30
	defaultWorkers           = 2
	defaultQueueCapacity     = 16
	defaultHeartbeatInterval = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			TempDir: defaultTempDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Downloader: Downloader{
			Binary:         defaultDownloaderBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			UserAgent:      defaultDownloaderUA,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		Whisper: Whisper{
			Binary:          defaultWhisperBinary,
			ChunkSeconds:    defaultChunkSeconds,
			MinChunkSeconds: defaultMinChunkSeconds,
			BeamSize:        defaultBeamSize,
			Temperature:     defaultTemperature,
			ConfidenceWarn:  defaultConfidenceWarn,
			VADSensitivity:  defaultVADSensitivity,
		},
		Translate: Translate{
			BaseURL:        defaultTranslateBaseURL,
			TimeoutSeconds: defaultTranslateTimeout,
		},
		Workflow: Workflow{
			Workers:           defaultWorkers,
			QueueCapacity:     defaultQueueCapacity,
			HeartbeatInterval: defaultHeartbeatInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
