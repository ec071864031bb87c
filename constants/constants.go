package constants

import "time"

const (
	RawJSONKey               = "_sdc_raw_json"
	DefaultRecordsPath       = "$[*]"
	DefaultNextPageTokenPath = "$.next_page"
	DefaultPaginationPath    = "$.pagination"
	NextPageHeader           = "X-Next-Page"
	DefaultBackoffHeader     = "Retry-After"
	DefaultBackoffMessageKey = "message"
	LastRunDatePlaceholder   = "$last_run_date"
	ISOTimestampLayout       = "2006-01-02T15:04:05"
	DefaultInferenceRecords  = 50
	DefaultPageSize          = 25
	DefaultInitialOffset     = 1
	DefaultMaxRetries        = 5
	DefaultRequestTimeout    = 300 * time.Second
	MaxComputedRetryWait     = 24 * time.Hour
	DefaultUserAgent         = "tap-rest-api-msdk"
	DefaultStateKey          = "tap-rest-api-msdk:state"
)

// viper keys
const (
	ConfigFolder  = "CONFIG_FOLDER"
	StatePath     = "STATE_PATH"
	StreamsPath   = "STREAMS_PATH"
	EncryptionKey = "ENCRYPTION_KEY"
	LogLevel      = "LOG_LEVEL"
	NoLogFile     = "NO_LOG_FILE"
)
