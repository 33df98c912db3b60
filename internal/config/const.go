package config

// Log levels accepted by internal/logger.InitLogger, named after the
// teacher's own log-level constants.
const (
	LogLevelDebug   string = "debug"
	LogLevelInfo    string = "info"
	LogLevelWarning string = "warn"
	LogLevelError   string = "error"
)

// Defaults for the client-side geometry constants named in spec.md §6.
// A block-server process only needs BlockSize/TotalNumBlocks/Port; the
// rest only matter to the RAID-5 client and the upper layer.
const (
	DefaultBlockSize      = 128
	DefaultTotalNumBlocks = 256
	DefaultNumServers     = 4
	DefaultStartPort      = 8000
	DefaultServerAddress  = "127.0.0.1"
	DefaultSocketTimeout  = 5 // seconds
	DefaultClientID       = 0
	DefaultMaxClients     = 8
)

// Version is the module's release version string.
const Version = "0.1.0"
