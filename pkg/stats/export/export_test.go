package export

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/srvkit/pkg/stats"
)

func sampleRecord(t *testing.T, server string, at time.Time) Record {
	t.Helper()
	r := stats.NewInMemory(nil)
	require.NoError(t, r.Counter("srv/requests").Incr(5))
	r.Gauge("srv/queue").Set(2)
	r.Histogram("lifecycle/main_ms").Observe(40)

	snap := r.Snapshot()
	snap.Taken = at
	return Record{Server: server, InstanceID: "id-1", ExitCode: 4, Snapshot: snap}
}

func TestFileExporterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "final.json")
	exp, err := Open(context.Background(), "file://"+path, Options{})
	require.NoError(t, err)
	defer exp.Close()

	rec := sampleRecord(t, "srvd", time.Now())
	require.NoError(t, exp.Export(context.Background(), rec))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "srvd", got.Server)
	assert.Equal(t, 4, got.ExitCode)
	assert.Equal(t, int64(5), got.Snapshot.Counters["srv/requests"])
	assert.Equal(t, 2.0, got.Snapshot.Gauges["srv/queue"])
	assert.Equal(t, int64(1), got.Snapshot.Histograms["lifecycle/main_ms"].Count)

	// A second export replaces the first.
	rec.ExitCode = 0
	require.NoError(t, exp.Export(context.Background(), rec))
	got, err = ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ExitCode)
}

func TestBadgerStoreHistory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	exp, err := Open(ctx, "badger://"+dir, Options{})
	require.NoError(t, err)
	store := exp.(*BadgerStore)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range 3 {
		rec := sampleRecord(t, "srvd", base.Add(time.Duration(i)*time.Second))
		rec.ExitCode = i
		require.NoError(t, store.Export(ctx, rec))
	}
	require.NoError(t, store.Export(ctx, sampleRecord(t, "other", base)))
	require.NoError(t, store.Close())

	// Reopen to prove persistence.
	store, err = OpenBadger(dir, nil)
	require.NoError(t, err)
	defer store.Close()

	recs, err := store.List(ctx, "srvd", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 2, recs[0].ExitCode)
	assert.Equal(t, 0, recs[2].ExitCode)

	recs, err = store.List(ctx, "srvd", 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	latest, ok, err := store.Latest(ctx, "srvd")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, latest.ExitCode)

	_, ok, err = store.Latest(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Exporter(t *testing.T) {
	fake := &fakeS3{}
	exp := NewS3ExporterWithClient(fake, "bucket", "/stats/final/")

	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	rec := sampleRecord(t, "srvd", at)
	require.NoError(t, exp.Export(context.Background(), rec))

	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "bucket", aws.ToString(fake.inputs[0].Bucket))
	assert.Equal(t, "stats/final/srvd/id-1-20260102T030405.000000006Z.json", aws.ToString(fake.inputs[0].Key))
	assert.Equal(t, "application/json", aws.ToString(fake.inputs[0].ContentType))
	assert.Contains(t, string(fake.bodies[0]), `"server":"srvd"`)

	fake.err = errors.New("access denied")
	err := exp.Export(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/")
}

func TestNewS3ExporterRequiresBucket(t *testing.T) {
	_, err := NewS3Exporter(context.Background(), "", "x", S3Options{})
	assert.Error(t, err)
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "ftp://host/path", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	assert.Equal(t, "s3", Scheme("s3://bucket/prefix"))
	assert.Equal(t, "file", Scheme("file:///tmp/x.json"))
}

func TestTimeKeySortsChronologically(t *testing.T) {
	a := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Nanosecond)
	c := a.Add(time.Second)
	assert.Less(t, timeKey(a), timeKey(b))
	assert.Less(t, timeKey(b), timeKey(c))
}
