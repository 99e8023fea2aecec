package config

const (
	defaultWatchDir                = "/"
	defaultHoldingDir              = "~/.local/share/md5watch/workdir"
	defaultStateDir                = "~/.local/share/md5watch"
	defaultLogDir                  = "~/.local/share/md5watch/logs"
	defaultChunkSizeBytes          = 1 << 20
	defaultOnCollision             = CollisionRename
	defaultBackend                 = BackendInotify
	defaultWorkers                 = 4
	defaultQueueSize               = 256
	defaultSettleMS                = 250
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultLogCompressAfterDays    = 3
	defaultAPIBind                 = ""
	defaultNotifyBad               = true
	defaultNotifyInvalid           = false
	defaultNotifyRelocationFailure = false
)

// Collision policies for a holding directory that already contains the arriving name.
const (
	CollisionRename    = "rename"
	CollisionReject    = "reject"
	CollisionOverwrite = "overwrite"
)

// Notification backends.
const (
	BackendInotify  = "inotify"
	BackendFsnotify = "fsnotify"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			HoldingDir: defaultHoldingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Verify: Verify{
			ChunkSizeBytes: defaultChunkSizeBytes,
			OnCollision:    defaultOnCollision,
		},
		Watch: Watch{
			Backend:   defaultBackend,
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
			SettleMS:  defaultSettleMS,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Bad:            defaultNotifyBad,
			Invalid:        defaultNotifyInvalid,
			Relocation:     defaultNotifyRelocationFailure,
		},
		Logging: Logging{
			Format:            defaultLogFormat,
			Level:             defaultLogLevel,
			RetentionDays:     defaultLogRetentionDays,
			CompressAfterDays: defaultLogCompressAfterDays,
		},
	}
}
