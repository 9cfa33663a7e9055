package confession_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessbot/apperr"
	"confessbot/confession"
	"confessbot/db"
	"confessbot/model"
)

func newTestService(t *testing.T) (*confession.Service, *db.Store) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "confessions.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return confession.NewService(store, nil), store
}

func TestSubmit_RoundTrip(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, model.Payload{Title: " A ", Body: "B\n"}, "user-42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	sub, err := store.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, sub.Status)
	assert.Equal(t, model.Payload{Title: "A", Body: "B"}, sub.Payload)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]model.Payload{
		"empty title":    {Title: "", Body: "B"},
		"blank title":    {Title: "   ", Body: "B"},
		"empty body":     {Title: "A", Body: ""},
		"title too long": {Title: strings.Repeat("x", confession.MaxTitleLength+1), Body: "B"},
		"body too long":  {Title: "A", Body: strings.Repeat("x", confession.MaxBodyLength+1)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(ctx, p, "u")
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Validation), "got %v", err)
		})
	}
}

func TestSubmit_BodyFitsPlainMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, model.Payload{Title: "A", Body: strings.Repeat("x", 2000)}, "u")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, model.Payload{Title: "A", Body: strings.Repeat("x", 2001)}, "u")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation), "got %v", err)
}

func TestSubmit_BlankImageIsAbsent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	blank := "  "
	id, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B", ImageURL: &blank}, "u")
	require.NoError(t, err)

	sub, err := store.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, sub.Payload.ImageURL)
}

func TestDecide_RejectThenApprove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B"}, "u")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	d, err := svc.Decide(ctx, id, model.Reject)
	require.NoError(t, err)
	assert.Equal(t, model.Reject, d.Verdict)
	assert.Nil(t, d.Publish)

	_, err = svc.Decide(ctx, id, model.Approve)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDecide_ApprovePublishesWithoutSubmitter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B"}, "user-42")
	require.NoError(t, err)

	d, err := svc.Decide(ctx, id, model.Approve)
	require.NoError(t, err)
	require.NotNil(t, d.Publish)
	assert.Equal(t, 1, d.Publish.Label)
	assert.Equal(t, id, d.Publish.SubmissionID)
	assert.Equal(t, model.Payload{Title: "A", Body: "B"}, d.Publish.Payload)
}

func TestDecide_RepeatedApproveIsNoop(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B"}, "u")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, id, model.Approve)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Decide(ctx, id, model.Approve)
		assert.True(t, apperr.Is(err, apperr.NotFound))
		_, err = svc.Decide(ctx, id, model.Reject)
		assert.True(t, apperr.Is(err, apperr.NotFound))
	}

	sub, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sub.Status)
	n, err := store.CountApproved(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDecide_UnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Decide(context.Background(), 12345, model.Approve)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDecide_UnknownVerdict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B"}, "u")
	require.NoError(t, err)

	_, err = svc.Decide(ctx, id, model.Verdict(99))
	require.Error(t, err)
	assert.Equal(t, apperr.Code(""), apperr.CodeOf(err), "unknown verdicts are internal errors")
}

func TestDecide_SerializedLabelsIncrease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		id, err := svc.Submit(ctx, model.Payload{Title: "t", Body: "b"}, "u")
		require.NoError(t, err)
		d, err := svc.Decide(ctx, id, model.Approve)
		require.NoError(t, err)
		assert.Equal(t, want, d.Publish.Label)
	}
}

func TestDecide_ConcurrentApprovals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B"}, "u1")
	require.NoError(t, err)
	second, err := svc.Submit(ctx, model.Payload{Title: "C", Body: "D"}, "u2")
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		labels []int
	)
	for _, id := range []int64{first, second} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			d, err := svc.Decide(ctx, id, model.Approve)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			labels = append(labels, d.Publish.Label)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	sort.Ints(labels)
	assert.Equal(t, []int{1, 2}, labels)
}

func TestDecide_ConcurrentSameID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, model.Payload{Title: "A", Body: "B"}, "u")
	require.NoError(t, err)

	const n = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := svc.Decide(ctx, id, model.Approve)
			if err != nil {
				assert.True(t, apperr.Is(err, apperr.NotFound))
				return
			}
			if d.Publish != nil {
				mu.Lock()
				published++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, published, "a confession must be published at most once")
}

type failingStore struct{ err error }

func (f failingStore) Create(context.Context, model.Payload, string) (int64, error) {
	return 0, f.err
}

func (f failingStore) GetPending(context.Context, int64) (*model.Submission, error) {
	return nil, f.err
}

func (f failingStore) Approve(context.Context, int64) (int, error) { return 0, f.err }

func (f failingStore) MarkRejected(context.Context, int64) error { return f.err }

func (f failingStore) MarkPublished(context.Context, int64) error { return f.err }

func TestSubmit_StorageErrorPropagates(t *testing.T) {
	cause := apperr.Wrap(apperr.Storage, "insert confession", errors.New("database is locked"))
	svc := confession.NewService(failingStore{err: cause}, nil)

	_, err := svc.Submit(context.Background(), model.Payload{Title: "A", Body: "B"}, "u")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Storage))
}

func TestRecordReply(t *testing.T) {
	svc, _ := newTestService(t)

	img := " https://example.com/x.png "
	r, err := svc.RecordReply(7, "  me too  ", &img)
	require.NoError(t, err)
	assert.Equal(t, int64(7), r.SubmissionID)
	assert.Equal(t, "me too", r.Text)
	require.NotNil(t, r.ImageURL)
	assert.Equal(t, "https://example.com/x.png", *r.ImageURL)

	empty := ""
	r, err = svc.RecordReply(7, "ok", &empty)
	require.NoError(t, err)
	assert.Nil(t, r.ImageURL)

	_, err = svc.RecordReply(7, "   ", nil)
	assert.True(t, apperr.Is(err, apperr.Validation))
}
