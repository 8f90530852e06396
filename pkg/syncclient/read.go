package syncclient

import (
	"context"
	"io"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
)

// Read assembles size bytes starting at offset from id's chunk store,
// fetching any missing blobs from the server when online. A chunk
// shorter than model.BlobSize (trailing zeros were stripped on write)
// is zero-padded back to full width before slicing.
func (c *Client) Read(ctx context.Context, id string, offset int64, size int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.Entities.Query(id)
	if err != nil {
		return nil, err
	}

	numChunks := model.NumChunks(e.Stat.Size)
	start := offset / model.BlobSize
	end := (offset + int64(size)) / model.BlobSize
	end++
	if end > numChunks {
		end = numChunks
	}
	if start >= end {
		return nil, nil
	}

	chunks, err := c.Entities.GetChunks(id)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int64]string, len(chunks))
	for _, ch := range chunks {
		byIndex[ch.Index] = ch.BlobID
	}

	var wanted []string
	for idx := start; idx < end; idx++ {
		if blobID, ok := byIndex[idx]; ok {
			wanted = append(wanted, blobID)
		}
	}

	missing, err := c.missingLocally(wanted)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		if c.Offline() {
			return nil, errs.New(errs.Offline, "blobs for %s are not cached locally", id)
		}
		fetched, err := c.fetchBlobs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, content := range fetched {
			if _, err := c.Blobs.Add(content); err != nil {
				return nil, err
			}
		}
	}

	var out []byte
	remaining := size
	for idx := start; idx < end && remaining > 0; idx++ {
		blockStart := idx * model.BlobSize
		blobID, ok := byIndex[idx]
		buf := make([]byte, model.BlobSize)
		if ok {
			content, err := c.Blobs.Get(blobID)
			if err != nil && !errs.Is(err, errs.BlobDoesNotExist) {
				return nil, err
			}
			copy(buf, content)
		}

		lo := int64(0)
		if offset > blockStart {
			lo = offset - blockStart
		}
		hi := int64(model.BlobSize)
		wantEnd := offset + int64(size)
		if wantEnd < blockStart+model.BlobSize {
			hi = wantEnd - blockStart
		}
		if hi > lo {
			out = append(out, buf[lo:hi]...)
			remaining -= int(hi - lo)
		}
	}
	return out, nil
}

// Readlink returns a symlink's target, stored as its ordinary content.
func (c *Client) Readlink(ctx context.Context, id string) (string, error) {
	e, err := c.Entities.Query(id)
	if err != nil {
		return "", err
	}
	data, err := c.Read(ctx, id, 0, int(e.Stat.Size))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) missingLocally(ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		if _, err := c.Blobs.Get(id); err != nil {
			if errs.Is(err, errs.BlobDoesNotExist) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
	}
	return missing, nil
}

func (c *Client) fetchBlobs(ctx context.Context, ids []string) (map[string][]byte, error) {
	stream, err := c.RPC.GetBlobs(ctx, &rpc.GetBlobsRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(ids))
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out[chunk.ID] = chunk.Content
	}
	return out, nil
}
