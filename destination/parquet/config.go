package parquet

import (
	"fmt"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/utils"
	pqgo "github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

const DefaultCompression = "snappy"

type Config struct {
	Path string `json:"local_path" validate:"required" jsonschema:"description=directory receiving one folder of parquet files per stream"`
	// Compression codec: snappy (default), gzip, zstd, lz4, none
	Compression string `json:"compression,omitempty" jsonschema:"enum=snappy,enum=gzip,enum=zstd,enum=lz4,enum=none,default=snappy"`
}

func (c *Config) Validate() error {
	if c.Compression == "" {
		c.Compression = DefaultCompression
	}
	if _, err := c.codec(); err != nil {
		return err
	}

	return utils.Validate(c)
}

func (c *Config) codec() (compress.Codec, error) {
	switch strings.ToLower(c.Compression) {
	case "", "snappy":
		return &pqgo.Snappy, nil
	case "gzip":
		return &pqgo.Gzip, nil
	case "zstd":
		return &pqgo.Zstd, nil
	case "lz4":
		return &pqgo.Lz4Raw, nil
	case "none", "uncompressed":
		return &pqgo.Uncompressed, nil
	default:
		return nil, fmt.Errorf("%w: invalid compression codec: %s. Valid options are: snappy, gzip, zstd, lz4, none", constants.ErrConfiguration, c.Compression)
	}
}
