package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

func TestNullHelpers(t *testing.T) {
	assert.Equal(t, sql.NullString{}, NullString(nil))
	assert.Equal(t, sql.NullString{String: "n-1", Valid: true}, NullString(domain.String("n-1")))
	assert.Nil(t, StringPtr(sql.NullString{}))
	assert.Equal(t, "n-1", *StringPtr(sql.NullString{String: "n-1", Valid: true}))

	now := time.Now()
	assert.Equal(t, sql.NullTime{}, NullTime(nil))
	assert.Equal(t, sql.NullTime{Time: now, Valid: true}, NullTime(&now))
	assert.Nil(t, TimePtr(sql.NullTime{}))
	assert.Equal(t, now, *TimePtr(sql.NullTime{Time: now, Valid: true}))
}

func TestStateValues_DedupTarget(t *testing.T) {
	state := &domain.NodeState{SnapshotID: "s", NodeID: "b", Deduped: true, DedupTarget: domain.String("a")}
	values := stateValues(state)
	assert.Len(t, values, len(stateColumns))
	assert.Equal(t, sql.NullString{String: "a", Valid: true}, values[7])

	state.Deduped, state.DedupTarget = false, nil
	assert.Equal(t, sql.NullString{}, stateValues(state)[7])
}
