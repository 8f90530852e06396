package syncclient

import (
	"context"

	"github.com/nimbusfs/nimbusfs/pkg/model"
	"github.com/nimbusfs/nimbusfs/pkg/modifyop"
)

// versionsOf returns the cached dirent/content version pair for id, or
// zero if the entity is not (yet) cached -- e.g. id is a freshly
// allocated temp id about to be created.
func (c *Client) versionsOf(id string) (int64, int64) {
	e, err := c.Entities.Query(id)
	if err != nil {
		return 0, 0
	}
	return e.DirentVersion, e.ContentVersion
}

// CreateFile creates a regular file, device node, fifo or socket under parent.
func (c *Client) CreateFile(ctx context.Context, parent, name string, fileType model.FileType, perm uint32, dev uint64) (*model.DirEntity, error) {
	dv, cv := c.versionsOf(parent)
	op := modifyop.NewCreateFile(parent, model.Now(), dv, cv, name, fileType, perm, dev)
	return c.execute(ctx, op)
}

// CreateSymlink creates a symlink under parent whose target is link.
func (c *Client) CreateSymlink(ctx context.Context, parent, name, link string) (*model.DirEntity, error) {
	dv, cv := c.versionsOf(parent)
	op := modifyop.NewCreateSymlink(parent, model.Now(), dv, cv, name, link)
	return c.execute(ctx, op)
}

// CreateDirectory creates a child directory under parent.
func (c *Client) CreateDirectory(ctx context.Context, parent, name string, perm uint32) (*model.DirEntity, error) {
	dv, cv := c.versionsOf(parent)
	op := modifyop.NewCreateDirectory(parent, model.Now(), dv, cv, name, perm)
	return c.execute(ctx, op)
}

// Remove removes a non-directory entry.
func (c *Client) Remove(ctx context.Context, id string) error {
	dv, cv := c.versionsOf(id)
	op := modifyop.NewRemoveFile(id, model.Now(), dv, cv)
	_, err := c.execute(ctx, op)
	return err
}

// RemoveDirectory removes an empty directory.
func (c *Client) RemoveDirectory(ctx context.Context, id string) error {
	dv, cv := c.versionsOf(id)
	op := modifyop.NewRemoveDirectory(id, model.Now(), dv, cv)
	_, err := c.execute(ctx, op)
	return err
}

// Rename moves/renames id.
func (c *Client) Rename(ctx context.Context, id, newParent, newName string) error {
	dv, cv := c.versionsOf(id)
	op := modifyop.NewRename(id, model.Now(), dv, cv, newParent, newName)
	_, err := c.execute(ctx, op)
	return err
}

// SetAttributes updates zero or more optional stat fields on id.
func (c *Client) SetAttributes(ctx context.Context, id string, attrs modifyop.SetAttributes) (*model.DirEntity, error) {
	dv, cv := c.versionsOf(id)
	op := modifyop.NewSetAttributes(id, model.Now(), dv, cv, attrs)
	return c.execute(ctx, op)
}
