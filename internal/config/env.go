package config

import (
	"fmt"
	"strconv"
	"strings"

	"phenoqc/internal/blob"
	"phenoqc/internal/core"
)

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on cfg. Unset or empty variables
// leave the configured value alone.
//
//	PHENOQC_SOURCE_DRIVER    memory|sqlite|postgres
//	PHENOQC_SOURCE_PATH      sqlite database file
//	PHENOQC_SOURCE_DSN       postgres connection string
//	PHENOQC_SOURCE_FIXTURE   JSON snapshot to seed the source with
//	PHENOQC_BLOB_*           snapshot store, see blob.ConfigFromEnv
//	PHENOQC_CONTROLS         comma separated toggle names
//	PHENOQC_ISSUE            issue whose citations are restored
//	PHENOQC_EXPORT           true to export visualisations
//	PHENOQC_LOG_LEVEL        debug|info|warn|error
//	PHENOQC_LOG_FORMAT       text|json
//	PHENOQC_METRICS          none|expvar|prometheus
//	PHENOQC_METRICS_ADDR     listen address for the metrics endpoint
//	PHENOQC_TRACE            none|json|otel
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	if v, ok := get("PHENOQC_SOURCE_DRIVER"); ok {
		cfg.Source.Driver = core.SourceDriver(v)
	}
	str("PHENOQC_SOURCE_PATH", &cfg.Source.Path)
	str("PHENOQC_SOURCE_DSN", &cfg.Source.DSN)
	str("PHENOQC_SOURCE_FIXTURE", &cfg.Source.Fixture)

	if v, ok := get("PHENOQC_BLOB_DRIVER"); ok {
		cfg.Blob.Driver = blob.Driver(v)
	}
	str("PHENOQC_BLOB_FS_ROOT", &cfg.Blob.Root)
	str("PHENOQC_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("PHENOQC_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("PHENOQC_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	if v, ok := get("PHENOQC_BLOB_S3_PATH_STYLE"); ok {
		cfg.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}

	if v, ok := get("PHENOQC_CONTROLS"); ok {
		cfg.Controls = strings.Split(v, ",")
	}
	if v, ok := get("PHENOQC_ISSUE"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PHENOQC_ISSUE: %w", err)
		}
		cfg.Issue = id
	}
	if v, ok := get("PHENOQC_EXPORT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PHENOQC_EXPORT: %w", err)
		}
		cfg.Export = b
	}
	str("PHENOQC_LOG_LEVEL", &cfg.Log.Level)
	str("PHENOQC_LOG_FORMAT", &cfg.Log.Format)
	str("PHENOQC_METRICS", &cfg.Metrics.Backend)
	str("PHENOQC_METRICS_ADDR", &cfg.Metrics.Addr)
	str("PHENOQC_TRACE", &cfg.Trace.Backend)
	return nil
}
