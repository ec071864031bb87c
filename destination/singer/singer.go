// Package singer writes SCHEMA, RECORD and STATE messages as JSON lines on stdout.
package singer

import (
	"context"
	"time"

	"github.com/Widen/tap-rest-api-msdk/destination"
	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
)

type Config struct{}

func (c *Config) Validate() error {
	return nil
}

type Singer struct {
	config *Config
	now    func() time.Time
}

func New() destination.Writer {
	return &Singer{now: time.Now}
}

func (s *Singer) GetConfigRef() destination.Config {
	s.config = &Config{}
	return s.config
}

func (s *Singer) Spec() any {
	return Config{}
}

func (s *Singer) Type() string {
	return string(destination.Singer)
}

func (s *Singer) Check(_ context.Context) error {
	return nil
}

func (s *Singer) Setup(_ context.Context, stream types.StreamInterface) error {
	message := types.Message{
		Type:          types.SchemaMessage,
		Stream:        stream.Name(),
		Schema:        stream.Schema(),
		KeyProperties: stream.PrimaryKeys(),
	}
	if cursor := stream.Cursor(); cursor != "" {
		message.BookmarkProperties = []string{cursor}
	}
	return logger.Output(message)
}

func (s *Singer) Write(_ context.Context, stream types.StreamInterface, record types.Record) error {
	extracted := s.now().UTC()
	return logger.Output(types.Message{
		Type:          types.RecordMessage,
		Stream:        stream.Name(),
		Record:        record,
		TimeExtracted: &extracted,
	})
}

func (s *Singer) WriteState(_ context.Context, state *types.State) error {
	state.LogState()
	return nil
}

func (s *Singer) Close(_ context.Context) error {
	return nil
}

func init() {
	destination.RegisteredWriters[destination.Singer] = New
}
