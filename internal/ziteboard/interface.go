package ziteboard

import "context"

// Interface is the set of Ziteboard operations the board manager depends on.
type Interface interface {
	CreateBoard(ctx context.Context) (boardID, token string, err error)
	UpdateToken(ctx context.Context, boardID string) (string, error)
	SetViewOnly(ctx context.Context, boardID string) error
}

var _ Interface = (*Client)(nil)
