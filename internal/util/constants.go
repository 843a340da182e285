package util

const (
	DBDriverMySQL    = "mysql"
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EventDriverRedis = "redis"
	EventDriverLog   = "log"
)

// 观看进度与测评的默认阈值，可由配置覆盖
const (
	DefaultFlushIntervalSeconds   = 5
	DefaultMaxAcceptedDelta       = 2.0
	DefaultCompletionThreshold    = 95.0
	DefaultMaxNumberRetries       = 3
	DefaultCompletedEventsChannel = "module.completed"
)
