package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
	"github.com/goccy/go-json"
	pqgo "github.com/parquet-go/parquet-go"
)

const fileExt = ".parquet"

type fileMetadata struct {
	path        string
	file        *os.File
	writer      *pqgo.GenericWriter[any]
	columns     map[string]types.DataType
	recordCount int
}

// Parquet writes one file per stream under <local_path>/<stream>/
type Parquet struct {
	config *Config
	files  map[string]*fileMetadata
}

func New() destination.Writer {
	return &Parquet{files: map[string]*fileMetadata{}}
}

func (p *Parquet) GetConfigRef() destination.Config {
	p.config = &Config{}
	return p.config
}

func (p *Parquet) Spec() any {
	return Config{}
}

func (p *Parquet) Type() string {
	return string(destination.Parquet)
}

// Check validates the local path is writable
func (p *Parquet) Check(_ context.Context) error {
	if err := os.MkdirAll(p.config.Path, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create local path: %s", err)
	}

	probe, err := os.CreateTemp(p.config.Path, ".check-*")
	if err != nil {
		return fmt.Errorf("local path is not writable: %s", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func (p *Parquet) Setup(_ context.Context, stream types.StreamInterface) error {
	if _, found := p.files[stream.ID()]; found {
		return nil
	}

	directoryPath := filepath.Join(p.config.Path, stream.Name())
	if err := os.MkdirAll(directoryPath, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories[%s]: %s", directoryPath, err)
	}

	codec, err := p.config.codec()
	if err != nil {
		return err
	}

	filePath := filepath.Join(directoryPath, time.Now().UTC().Format("20060102T150405.000000000Z")+fileExt)
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create parquet file[%s]: %s", filePath, err)
	}

	schema := stream.Schema()
	columns := map[string]types.DataType{}
	for _, column := range schema.Columns() {
		typ, _ := schema.GetType(column)
		columns[column] = typ
	}

	p.files[stream.ID()] = &fileMetadata{
		path:    filePath,
		file:    file,
		writer:  pqgo.NewGenericWriter[any](file, schema.ToParquet(), pqgo.Compression(codec)),
		columns: columns,
	}
	return nil
}

func (p *Parquet) Write(_ context.Context, stream types.StreamInterface, record types.Record) error {
	meta, found := p.files[stream.ID()]
	if !found {
		return fmt.Errorf("stream[%s] was not set up", stream.ID())
	}

	row := make(map[string]any, len(meta.columns))
	for column, typ := range meta.columns {
		value, err := columnValue(record[column], typ)
		if err != nil {
			return fmt.Errorf("column[%s]: %s", column, err)
		}
		row[column] = value
	}

	if _, err := meta.writer.Write([]any{row}); err != nil {
		return fmt.Errorf("failed to write record: %s", err)
	}
	meta.recordCount++
	return nil
}

// WriteState is a no-op; bookmarks are persisted by the state store
func (p *Parquet) WriteState(_ context.Context, _ *types.State) error {
	return nil
}

// Close flushes every stream file and removes the ones left empty
func (p *Parquet) Close(_ context.Context) error {
	var firstErr error
	for streamID, meta := range p.files {
		if err := meta.writer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close writer of stream[%s]: %s", streamID, err)
		}
		if err := meta.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close parquet file[%s]: %s", meta.path, err)
		}
		if meta.recordCount == 0 {
			if err := os.Remove(meta.path); err != nil {
				logger.Warnf("failed to remove empty parquet file[%s]: %s", meta.path, err)
			}
			continue
		}
		logger.Infof("wrote %d records of stream[%s] to %s", meta.recordCount, streamID, meta.path)
	}
	p.files = map[string]*fileMetadata{}
	return firstErr
}

// columnValue converts a flat record value to the go type of its parquet leaf
func columnValue(value any, typ types.DataType) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch typ {
	case types.Int64:
		switch v := value.(type) {
		case float64:
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case json.Number:
			return v.Int64()
		}
	case types.Float64:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case json.Number:
			return v.Float64()
		}
	case types.Bool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case types.Timestamp:
		if t, err := typeutils.ParseTimestamp(value); err == nil {
			return t.UTC().Format(time.RFC3339Nano), nil
		}
	}

	if s, ok := value.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func init() {
	destination.RegisteredWriters[destination.Parquet] = New
}
