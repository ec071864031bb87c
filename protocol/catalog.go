package protocol

import (
	"fmt"
	"strings"

	"github.com/Widen/tap-rest-api-msdk/types"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
)

// selectStreams returns the catalog streams taking part in the sync, in
// catalog order. Streams missing from the source or with an invalid sync
// mode are skipped; a nil catalog selects every discovered stream.
func selectStreams(catalog *types.Catalog, streams []*types.Stream) ([]types.StreamInterface, error) {
	if catalog == nil {
		catalog = types.GetWrappedCatalog(streams)
	}

	sources := types.StreamsToMap(streams...)
	var (
		selected []types.StreamInterface
		ids      []string
	)
	for _, elem := range catalog.Streams {
		if elem == nil || elem.Stream == nil {
			continue
		}
		if !catalog.Selected(elem.ID()) {
			logger.Debugf("Skipping stream %s; not in selected streams", elem.ID())
			continue
		}

		source, found := sources[elem.ID()]
		if !found {
			logger.Warnf("Skipping; configured stream %s not found in source", elem.ID())
			continue
		}
		if err := elem.Validate(source); err != nil {
			logger.Warnf("Skipping; configured stream %s found invalid due to reason: %s", elem.ID(), err)
			continue
		}

		selected = append(selected, elem)
		ids = append(ids, elem.ID())
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no valid streams found in catalog")
	}

	logger.Infof("Valid selected streams are %s", strings.Join(ids, ", "))
	return selected, nil
}
