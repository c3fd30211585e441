package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name" env:"NAME"`
	Host      string           `yaml:"host" env:"HOST"`
	Port      int              `yaml:"port" env:"PORT"`
	LogLevel  string           `yaml:"log_level" env:"LOG_LEVEL"`
	GrpcHost  string           `yaml:"grpc_host" env:"GRPC_HOST"`
	GrpcPort  int              `yaml:"grpc_port" env:"GRPC_PORT"`
	Transport MTransportConfig `yaml:"transport" envPrefix:"TRANSPORT_"`
	Buffers   MBuffersConfig   `yaml:"buffers" envPrefix:"BUFFERS_"`
	Recording MRecordingConfig `yaml:"recording" envPrefix:"RECORDING_"`
	Market    MMarketConfig    `yaml:"market" envPrefix:"MARKET_"`
	API       MAPIConfig       `yaml:"api" envPrefix:"API_"`
}

// MTransportConfig holds the two terminal endpoints.
type MTransportConfig struct {
	SubEndpoint    string `yaml:"sub_endpoint" env:"SUB_ENDPOINT"`
	ReqEndpoint    string `yaml:"req_endpoint" env:"REQ_ENDPOINT"`
	Topic          string `yaml:"topic" env:"TOPIC"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms" env:"RETRY_BACKOFF_MS"`
}

// MBuffersConfig fixes every queue and history capacity at construction.
type MBuffersConfig struct {
	TickHistory       int `yaml:"tick_history" env:"TICK_HISTORY"`
	VolumeHistory     int `yaml:"volume_history" env:"VOLUME_HISTORY"`
	Breaklines        int `yaml:"breaklines" env:"BREAKLINES"`
	TickQueue         int `yaml:"tick_queue" env:"TICK_QUEUE"`
	CommandQueue      int `yaml:"command_queue" env:"COMMAND_QUEUE"`
	ReplyQueue        int `yaml:"reply_queue" env:"REPLY_QUEUE"`
	IntentQueue       int `yaml:"intent_queue" env:"INTENT_QUEUE"`
	RefreshIntervalMs int `yaml:"refresh_interval_ms" env:"REFRESH_INTERVAL_MS"`
}

type MRecordingConfig struct {
	Dir       string `yaml:"dir" env:"DIR"`
	ExportDir string `yaml:"export_dir" env:"EXPORT_DIR"`
}

type MMarketConfig struct {
	CalendarMIC          string `yaml:"calendar_mic" env:"CALENDAR_MIC"`
	StaleAfterSeconds    int    `yaml:"stale_after_seconds" env:"STALE_AFTER_SECONDS"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds" env:"CHECK_INTERVAL_SECONDS"`
}

type MAPIConfig struct {
	OrderRatePerSec float64 `yaml:"order_rate_per_sec" env:"ORDER_RATE_PER_SEC"`
	OrderBurst      int     `yaml:"order_burst" env:"ORDER_BURST"`
	StaticDir       string  `yaml:"static_dir" env:"STATIC_DIR"`
}
