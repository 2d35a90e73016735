package group

import (
	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

// SignCommit re-signs c with g's key over gc, as a member with a modified
// client would.
func SignCommit(g *Group, c *domain.Commit, gc domain.GroupContext) error {
	tbs, err := wire.CommitTBS(c, gc)
	if err != nil {
		return err
	}
	c.Signature = g.suite.SignWithLabel(g.signer, framedContentLabel, tbs)
	return nil
}
