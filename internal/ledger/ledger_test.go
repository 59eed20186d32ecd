package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/dedupe"
)

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(ctx, path, nil)
	require.NoError(t, err)

	k := dedupe.Key{CPFDigits: "11144477735", Matricula: "123456"}
	require.NoError(t, l.RecordAccepted(ctx, k))
	require.NoError(t, l.RecordAccepted(ctx, k)) // idempotent
	require.NoError(t, l.RecordAccepted(ctx, dedupe.Key{CPFDigits: "11144477735"})) // invalid, ignored
	require.NoError(t, l.FinishRun(ctx, 1, 0, 0))
	require.NoError(t, l.Close())

	// a later run sees the keys committed before it
	l2, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer l2.Close()

	keys, err := l2.PriorKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[dedupe.Key]struct{}{k: {}}, keys)
}
