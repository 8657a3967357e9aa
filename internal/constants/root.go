package constants

import "time"

const (
	AppName             = "madhabits"
	DefaultKeyringUser  = "database-connection"
	DefaultConfigPath   = "~/.config/madhabits/madhabits.db"
	DefaultSettingsPath = "~/.config/madhabits/config.yaml"
	Version             = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Sync constants
	SyncInterval          = 5 * time.Minute
	ReconnectSyncBurst    = 1
	ReconnectSyncEvery    = 30 * time.Second
	ConnectivityInterval  = 30 * time.Second
	BackgroundSyncTimeout = time.Minute

	// MakeUpWindowDays is how many days after a missed weekly occurrence an
	// alternative completion date may fall.
	MakeUpWindowDays = 7

	// ProvisionalIDPrefix marks identifiers assigned locally before the
	// remote store confirms a record.
	ProvisionalIDPrefix = "temp-"

	// Habit display defaults
	DefaultHabitIcon  = "🎯"
	DefaultHabitColor = "#3B82F6"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "madhabits-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "madhabits-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.fahimkhamsa.madhabits"
	TrayExecutablePrefix   = "madhabits-tray"
	DaemonLockfileName     = "madhabits-daemon.pid"

	// Environment variables
	EnvDBConnection = "MADHABITS_DB_CONNECTION"
	EnvTimezone     = "MADHABITS_TIMEZONE"
	EnvUser         = "MADHABITS_USER"
)
