package syncclient

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nimbusfs/nimbusfs/pkg/api"
	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
	"github.com/nimbusfs/nimbusfs/pkg/serverfs"
)

// newTestServer wires a real serverfs.FS behind a real in-process
// gRPC server, reachable only through the returned bufconn dialer.
func newTestServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	entities, err := entitystore.Open(filepath.Join(t.TempDir(), "entities.db"), false, idgen.NewAuthoritativeID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = entities.Close() })

	blobs, err := blobstore.Open(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	fs := serverfs.New(entities, blobs)
	apiServer := api.NewServer(fs)

	grpcServer := grpc.NewServer()
	rpc.RegisterServer(grpcServer, apiServer)

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestClient(t *testing.T, conn *grpc.ClientConn, offline bool) *Client {
	t.Helper()

	tempIDs := idgen.NewTempIDGenerator()
	entities, err := entitystore.Open(filepath.Join(t.TempDir(), "entities.db"), true, tempIDs.Next)
	require.NoError(t, err)
	t.Cleanup(func() { _ = entities.Close() })

	blobs, err := blobstore.Open(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	return New(entities, blobs, rpc.NewClient(conn), tempIDs, offline)
}

func TestCreateFileOnlineIsImmediatelyAuthoritative(t *testing.T) {
	conn := newTestServer(t)
	c := newTestClient(t, conn, false)
	ctx := context.Background()

	e, err := c.CreateFile(ctx, model.RootID, "a.txt", model.RegularFile, 0644, 0)
	require.NoError(t, err)
	assert.False(t, idgen.IsTempID(e.ID))

	children, err := c.List(ctx, model.RootID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "a.txt", children[0].Name)
}

func TestWriteAndReadRoundTripOnline(t *testing.T) {
	conn := newTestServer(t)
	c := newTestClient(t, conn, false)
	ctx := context.Background()

	e, err := c.CreateFile(ctx, model.RootID, "a.txt", model.RegularFile, 0644, 0)
	require.NoError(t, err)

	fh := c.Open(e.ID)
	require.NoError(t, c.Write(ctx, fh, 0, []byte("hello world")))
	require.NoError(t, c.Flush(ctx, fh))
	require.NoError(t, c.Close(fh))

	got, err := c.Read(ctx, e.ID, 0, 11)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestOfflineWritesFlushOnJournalFlush(t *testing.T) {
	conn := newTestServer(t)
	c := newTestClient(t, conn, true)
	ctx := context.Background()

	e, err := c.CreateFile(ctx, model.RootID, "a.txt", model.RegularFile, 0644, 0)
	require.NoError(t, err)
	assert.True(t, idgen.IsTempID(e.ID))

	fh := c.Open(e.ID)
	require.NoError(t, c.Write(ctx, fh, 0, []byte("offline content")))
	require.NoError(t, c.Flush(ctx, fh))
	require.NoError(t, c.Close(fh))

	c.SetOffline(false)
	require.True(t, c.ShouldFlushJournal())
	require.NoError(t, c.FlushJournal(ctx))
	assert.False(t, c.ShouldFlushJournal())

	records, err := c.Entities.GetJournal()
	require.NoError(t, err)
	assert.Empty(t, records)

	children, err := c.List(ctx, model.RootID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.False(t, idgen.IsTempID(children[0].ID))

	got, err := c.Read(ctx, children[0].ID, 0, len("offline content"))
	require.NoError(t, err)
	assert.Equal(t, "offline content", string(got))
}

func TestUpdateChunksOfflineSucceedsWhenUpToDate(t *testing.T) {
	conn := newTestServer(t)
	c := newTestClient(t, conn, false)
	ctx := context.Background()

	e, err := c.CreateFile(ctx, model.RootID, "a.txt", model.RegularFile, 0644, 0)
	require.NoError(t, err)

	fh := c.Open(e.ID)
	require.NoError(t, c.Write(ctx, fh, 0, []byte("v1")))
	require.NoError(t, c.Flush(ctx, fh))
	require.NoError(t, c.Close(fh))

	c.SetOffline(true)
	require.NoError(t, c.UpdateChunks(ctx, e.ID))
}

func TestUpdateChunksOfflineFailsWhenStale(t *testing.T) {
	conn := newTestServer(t)
	writer := newTestClient(t, conn, false)
	reader := newTestClient(t, conn, false)
	ctx := context.Background()

	e, err := writer.CreateFile(ctx, model.RootID, "a.txt", model.RegularFile, 0644, 0)
	require.NoError(t, err)

	fh := writer.Open(e.ID)
	require.NoError(t, writer.Write(ctx, fh, 0, []byte("v1")))
	require.NoError(t, writer.Flush(ctx, fh))
	require.NoError(t, writer.Close(fh))

	_, err = reader.List(ctx, model.RootID)
	require.NoError(t, err)

	reader.SetOffline(true)
	err = reader.UpdateChunks(ctx, e.ID)
	require.Error(t, err)
}
