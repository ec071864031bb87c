package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfiguredStream_Validate(t *testing.T) {
	source := NewStream("users", "", nil).
		WithSyncMode(FULLREFRESH, INCREMENTAL).
		WithCursorField("updated_at")
	source.SyncMode = INCREMENTAL
	source.CursorField = "updated_at"

	testCases := []struct {
		name    string
		mode    SyncMode
		cursor  string
		wantErr bool
	}{
		{name: "inherits defaults", mode: "", cursor: ""},
		{name: "full refresh", mode: FULLREFRESH},
		{name: "incremental with known cursor", mode: INCREMENTAL, cursor: "updated_at"},
		{name: "incremental with unknown cursor", mode: INCREMENTAL, cursor: "created_at", wantErr: true},
		{name: "unsupported mode", mode: SyncMode("cdc"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			configured := NewStream("users", "", nil)
			configured.SyncMode = tc.mode
			configured.CursorField = tc.cursor

			err := configured.Wrap().Validate(source)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCatalog_Selected(t *testing.T) {
	catalog := &Catalog{}
	assert.True(t, catalog.Selected("users"))

	catalog.SelectedStreams = []string{"orders"}
	assert.False(t, catalog.Selected("users"))
	assert.True(t, catalog.Selected("orders"))
}
