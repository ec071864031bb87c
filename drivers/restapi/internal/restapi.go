package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/drivers/abstract"
	"github.com/Widen/tap-rest-api-msdk/pkg/auth"
	"github.com/Widen/tap-rest-api-msdk/pkg/backoff"
	"github.com/Widen/tap-rest-api-msdk/pkg/transport"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/typeutils"
)

const driverType = "rest-api"

type RestAPI struct {
	config *Config

	order   []string
	streams map[string]*StreamConfig
	clients map[string]*transport.Client
	auth    auth.Authenticator
}

func (r *RestAPI) GetConfigRef() abstract.Config {
	r.config = &Config{}
	return r.config
}

func (r *RestAPI) Spec() any {
	return Config{}
}

func (r *RestAPI) Type() string {
	return driverType
}

// Setup resolves the streams and builds the authenticator shared by all of
// them plus one transport per stream carrying its backoff policy
func (r *RestAPI) Setup(_ context.Context) error {
	if r.config == nil {
		return fmt.Errorf("%w: config not loaded", constants.ErrConfiguration)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}
	streams, err := r.config.Resolve()
	if err != nil {
		return err
	}

	authenticator, err := auth.New(r.config.authConfig(), nil)
	if err != nil {
		return err
	}

	r.auth = authenticator
	r.order = make([]string, 0, len(streams))
	r.streams = make(map[string]*StreamConfig, len(streams))
	r.clients = make(map[string]*transport.Client, len(streams))
	for _, stream := range streams {
		policy, err := backoff.New(stream.Config)
		if err != nil {
			return fmt.Errorf("stream[%s]: %w", stream.Name, err)
		}

		r.order = append(r.order, stream.Name)
		r.streams[stream.Name] = stream
		r.clients[stream.Name] = transport.NewClient(transport.Config{
			BaseURL:           r.config.APIURL,
			UserAgent:         r.config.UserAgent,
			Timeout:           r.config.requestTimeout(),
			MaxRetries:        r.config.maxRetries(),
			RequestsPerSecond: r.config.RequestsPerSecond,
			Auth:              authenticator,
			RetryAfter:        policy.ComputeWait,
		})
	}

	logger.Infof("configured %d streams against %s using %s auth", len(streams), r.config.APIURL, authenticator.Method())
	return nil
}

func (r *RestAPI) GetStreamNames(_ context.Context) ([]string, error) {
	if r.streams == nil {
		return nil, fmt.Errorf("driver is not set up")
	}
	return append([]string{}, r.order...), nil
}

func (r *RestAPI) stream(name string) (*StreamConfig, *transport.Client, error) {
	cfg, found := r.streams[name]
	if !found {
		return nil, nil, fmt.Errorf("%w: stream [%s] is not configured", constants.ErrConfiguration, name)
	}
	return cfg, r.clients[name], nil
}

// ProduceSchema describes a stream with its supplied schema, or one inferred
// from the first records the api returns
func (r *RestAPI) ProduceSchema(ctx context.Context, name string) (*types.Stream, error) {
	cfg, client, err := r.stream(name)
	if err != nil {
		return nil, err
	}

	schema, err := r.loadSchema(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	stream := types.NewStream(cfg.Name, "", schema).
		WithPrimaryKey(cfg.PrimaryKeys...).
		WithSyncMode(types.FULLREFRESH)
	if cfg.ReplicationKey != "" {
		stream.WithSyncMode(types.INCREMENTAL).WithCursorField(cfg.ReplicationKey)
		stream.CursorField = cfg.ReplicationKey
	}
	return stream, nil
}

func (r *RestAPI) loadSchema(ctx context.Context, cfg *StreamConfig, client *transport.Client) (*types.TypeSchema, error) {
	switch source := cfg.Schema.(type) {
	case map[string]any:
		schema := types.NewTypeSchema()
		if err := utils.Unmarshal(source, schema); err != nil {
			return nil, fmt.Errorf("%w: invalid schema of stream[%s]: %s", constants.ErrConfiguration, cfg.Name, err)
		}
		return schema, nil
	case string:
		if _, err := os.Stat(source); err != nil {
			return nil, fmt.Errorf("%w: schema file of stream[%s]: %s", constants.ErrConfiguration, cfg.Name, err)
		}
		schema := types.NewTypeSchema()
		if err := utils.UnmarshalFile(source, schema, false); err != nil {
			return nil, fmt.Errorf("%w: %s", constants.ErrConfiguration, err)
		}
		return schema, nil
	default:
		return r.inferSchema(ctx, cfg, client)
	}
}

// inferSchema samples up to num_inference_records flattened records
func (r *RestAPI) inferSchema(ctx context.Context, cfg *StreamConfig, client *transport.Client) (*types.TypeSchema, error) {
	iterator, err := newRecordIterator(ctx, client, cfg, cfg.replicationStart(nil), cfg.NumInferenceRecords)
	if err != nil {
		return nil, err
	}

	var samples []types.Record
	for iterator.Next() {
		samples = append(samples, iterator.Record())
	}
	if err := iterator.Err(); err != nil {
		return nil, fmt.Errorf("%w: sampling stream[%s] failed: %w", constants.ErrSchemaInference, cfg.Name, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: stream[%s] returned no records at %s; supply a schema", constants.ErrSchemaInference, cfg.Name, cfg.RecordsPath)
	}

	logger.Debugf("inferred schema of stream[%s] from %d records over %d pages", cfg.Name, len(samples), iterator.Pages())
	return typeutils.InferSchema(samples), nil
}

// Iterator walks the stream pages starting after bookmark, or from start_date
func (r *RestAPI) Iterator(ctx context.Context, stream types.StreamInterface, bookmark any) (abstract.RecordIterator, error) {
	cfg, client, err := r.stream(stream.Name())
	if err != nil {
		return nil, err
	}
	return newRecordIterator(ctx, client, cfg, cfg.replicationStart(bookmark), 0)
}

// Authenticator exposes the credential shared by every stream
func (r *RestAPI) Authenticator() auth.Authenticator {
	return r.auth
}
