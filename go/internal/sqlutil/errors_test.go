package sqlutil

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert pick: %w", &pq.Error{Code: "23505", Constraint: "draft_picks_session_player_key"})
	constraint, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "draft_picks_session_player_key", constraint)

	_, ok = UniqueViolation(&pq.Error{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestNullConverters(t *testing.T) {
	assert.Nil(t, FromSqlTime(ToSqlTime(nil)))
	now := time.Now()
	assert.Equal(t, now, *FromSqlTime(ToSqlTime(&now)))

	assert.Nil(t, FromNullUUID(ToNullUUID(nil)))
	id := uuid.New()
	assert.Equal(t, id, *FromNullUUID(ToNullUUID(&id)))

	assert.Nil(t, FromSqlInt64(sql.NullInt64{}))
	n := int64(4200)
	assert.Equal(t, n, *FromSqlInt64(ToSqlInt64(&n)))
}
