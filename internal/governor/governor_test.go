package governor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/backend/stub"
	"github.com/reelforge/viralcut/internal/errs"
)

func stubFactory(lang string) (backend.Backend, error) {
	return stub.New(lang), nil
}

func TestAcquire_SharesResidentInstanceByRefCount(t *testing.T) {
	gov := New(1000, stubFactory)
	ctx := context.Background()

	l1, err := gov.Acquire(ctx, "en")
	require.NoError(t, err)
	l2, err := gov.Acquire(ctx, "en")
	require.NoError(t, err)

	require.Same(t, l1.Backend(), l2.Backend())

	l1.Release()
	l2.Release()
}

func TestAcquire_InsufficientMemoryIsRetriable(t *testing.T) {
	// stub.ResidentMiB() == 32; ceiling of 10 can never fit one.
	gov := New(10, stubFactory)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gov.Acquire(ctx, "en")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errs.KindResource, e.Kind)
	require.Equal(t, errs.CodeInsufficientMemory, e.Code)
	require.True(t, e.Retriable())
}

func TestAcquire_EvictsLRUWhenCeilingWouldBeExceeded(t *testing.T) {
	// Each stub backend declares 32 MiB; ceiling only fits one at a time.
	gov := New(40, stubFactory)
	ctx := context.Background()

	lEN, err := gov.Acquire(ctx, "en")
	require.NoError(t, err)
	lEN.Release() // now unleased, evictable

	lZH, err := gov.Acquire(ctx, "zh")
	require.NoError(t, err)
	defer lZH.Release()

	require.Equal(t, []string{"zh"}, gov.ResidentLanguages())
}

func TestAcquire_NeverEvictsALeasedBackend(t *testing.T) {
	gov := New(40, stubFactory)
	ctx := context.Background()

	lEN, err := gov.Acquire(ctx, "en")
	require.NoError(t, err)
	defer lEN.Release()

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = gov.Acquire(ctx2, "zh")
	require.Error(t, err)
}

func TestObserveRSS_FeedsEMA(t *testing.T) {
	gov := New(1000, stubFactory)
	ctx := context.Background()
	l, err := gov.Acquire(ctx, "en")
	require.NoError(t, err)
	defer l.Release()

	before := gov.RSSEMA("en")
	gov.ObserveRSS("en", 200)
	after := gov.RSSEMA("en")
	require.NotEqual(t, before, after)
}
