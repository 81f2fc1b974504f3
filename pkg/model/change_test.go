package model_test

import (
	"encoding/json"
	"testing"

	"github.com/jvs-project/tidy/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeRecord_WireFieldNames(t *testing.T) {
	rec := model.ChangeRecord{Kind: model.ChangeFolderCreation, Destination: "/d/Audio"}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Type":"folder_creation","source":"","destination":"/d/Audio"}`, string(data))
}

func TestLedgerArtifact_CountByKind(t *testing.T) {
	a := &model.LedgerArtifact{Changes: []model.ChangeRecord{
		{Kind: model.ChangeFolderCreation, Destination: "/d/Audio"},
		{Kind: model.ChangeMove, Source: "/d/a.mp3", Destination: "/d/Audio/a.mp3"},
		{Kind: model.ChangeMove, Source: "/d/b.mp3", Destination: "/d/Audio/b.mp3"},
	}}
	assert.Equal(t, 1, a.CountByKind(model.ChangeFolderCreation))
	assert.Equal(t, 2, a.CountByKind(model.ChangeMove))
}

func TestChangeKind_Valid(t *testing.T) {
	assert.True(t, model.ChangeMove.Valid())
	assert.True(t, model.ChangeFolderCreation.Valid())
	assert.False(t, model.ChangeKind("rename").Valid())
	assert.False(t, model.ChangeKind("").Valid())
}
