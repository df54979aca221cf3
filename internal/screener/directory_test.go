package screener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Lookup(t *testing.T) {
	dir := NewStatic(
		Screener{FirstName: "Anja", LastName: "Screener", Email: "anja@screener.de"},
		Screener{ID: 7, FirstName: "Neu", LastName: "Screener", Email: "neu@screener.de"},
	)

	tests := []struct {
		name    string
		email   string
		wantID  int
		wantErr error
	}{
		{name: "known screener", email: "anja@screener.de", wantID: 1},
		{name: "explicit id", email: "neu@screener.de", wantID: 7},
		{name: "case and whitespace insensitive", email: "  ANJA@screener.de ", wantID: 1},
		{name: "unknown", email: "student@x.com", wantErr: ErrUnknownScreener},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := dir.Lookup(context.Background(), tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, sc.ID)
		})
	}
}

func TestScreener_Info(t *testing.T) {
	sc := &Screener{ID: 3, FirstName: "Anja", LastName: "Screener", Email: "anja@screener.de"}
	now := time.UnixMilli(1_700_000_000_123)

	info := sc.Info(now)
	assert.Equal(t, 3, info.ID)
	assert.Equal(t, "Anja", info.FirstName)
	assert.Equal(t, "Screener", info.LastName)
	assert.Equal(t, "anja@screener.de", info.Email)
	assert.Equal(t, int64(1_700_000_000_123), info.Time)
}
